package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joripage/tradehook/pkg/simgateway"
)

func main() {
	port := flag.Int("port", 7497, "port to accept FIX sessions on")
	reject := flag.String("reject", "", "comma-separated symbols to reject")
	ackDelay := flag.Duration("ack-delay", 0, "delay before each execution report")
	flag.Parse()

	var rejectSymbols []string
	if *reject != "" {
		rejectSymbols = strings.Split(*reject, ",")
	}

	server := simgateway.NewServer(simgateway.Config{
		Port:          *port,
		RejectSymbols: rejectSymbols,
		AckDelay:      *ackDelay,
	})
	if err := server.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "start:", err)
		os.Exit(1)
	}
	fmt.Printf("sim gateway listening on :%d (reject=%v, ack-delay=%s)\n", *port, rejectSymbols, *ackDelay)
	fmt.Println("Press Ctrl+C to exit.")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	fmt.Println("Shutting down...")
	server.Stop()
	time.Sleep(100 * time.Millisecond)
	fmt.Println("Exited cleanly.")
}
