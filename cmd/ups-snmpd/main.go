package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsbridge/ups-snmpd"
	"github.com/opsbridge/ups-snmpd/internal/config"
	"github.com/opsbridge/ups-snmpd/internal/logging"
	"github.com/opsbridge/ups-snmpd/internal/reqtable"
	"github.com/opsbridge/ups-snmpd/internal/serial"
	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

func main() {
	var (
		portPath = flag.String("port", "/dev/ttyUSB0", "Serial device path for the UPS UART link")
		baudRate = flag.Int("baud", 2400, "Serial baud rate")
		snmpAddr = flag.String("snmp-addr", "", "SNMP UDP bind address (default :161)")
		verbose  = flag.Bool("v", false, "Verbose (debug-level) logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	port, err := serial.Open(serial.Options{Path: *portPath, BaudRate: *baudRate})
	if err != nil {
		logger.Error("failed to open serial port", "path", *portPath, "err", err.Error())
		os.Exit(1)
	}
	defer port.Close()

	snap := telemetry.DefaultSnapshot()
	adapter := reqtable.NewGenericUPSAdapter(snap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup, err := upsbridge.CreateAndServe(ctx, upsbridge.Options{
		Port:      port,
		Adapter:   adapter,
		Config:    cfg,
		Logger:    logger,
		Telemetry: snap,
		SNMPAddr:  *snmpAddr,
	})
	if err != nil {
		logger.Error("failed to start bridge", "err", err.Error())
		os.Exit(1)
	}

	logger.Info("ups-snmpd started", "serial_port", *portPath, "baud", *baudRate)
	fmt.Printf("ups-snmpd listening for UPS traffic on %s, serving SNMP\n", *portPath)
	fmt.Println("Press Ctrl+C to stop...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := upsbridge.StopAndDelete(stopCtx, sup); err != nil {
		logger.Error("error stopping bridge", "err", err.Error())
	} else {
		logger.Info("bridge stopped successfully")
	}
}
