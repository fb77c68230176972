// Command plumcastd runs a small local demo cluster: N nodes joined over
// an in-process loop transport, one of them broadcasting on a timer,
// every node logging what it delivers. Grounded on the teacher's
// cmd-less test harnesses (test/tcp_transport_test.go's multi-peer
// setup), turned into a standalone runnable the way fuzzy/ fuzzers in
// the same pack are invoked as separate binaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jabolina/plumcast/pkg/plumcast/config"
	"github.com/jabolina/plumcast/pkg/plumcast/core"
	"github.com/jabolina/plumcast/pkg/plumcast/definition"
	"github.com/jabolina/plumcast/pkg/plumcast/service"
	"github.com/jabolina/plumcast/pkg/plumcast/transport"
	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

func main() {
	nodeCount := flag.Int("nodes", 6, "number of in-process nodes to run")
	broadcastEvery := flag.Duration("broadcast-every", 2*time.Second, "interval at which node 0 broadcasts a message")
	tickInterval := flag.Duration("tick-interval", 100*time.Millisecond, "engine maintenance tick interval")
	flag.Parse()

	if *nodeCount < 2 {
		fmt.Fprintln(os.Stderr, "plumcastd: -nodes must be at least 2")
		os.Exit(1)
	}

	logger := definition.NewDefaultLogger()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hub := transport.NewLoopHub()
	nodes := make([]*core.Node, 0, *nodeCount)

	for i := 0; i < *nodeCount; i++ {
		lt := transport.NewLoopTransport(hub)
		svc := service.New(config.ServiceConfig{
			ListenAddress: string(lt.Address()),
			TickInterval:  *tickInterval,
		}, lt, logger, nil)
		defer svc.Close()

		n := svc.NewNode(core.NodeOptions{})
		if i > 0 {
			n.Join(nodes[0].ID())
		}
		nodes = append(nodes, n)

		go logDeliveries(ctx, logger, n)
	}

	logger.Infof("plumcastd: %d nodes joined, node 0 broadcasting every %s", *nodeCount, *broadcastEvery)

	seqno := 0
	ticker := time.NewTicker(*broadcastEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("plumcastd: shutting down")
			return
		case <-ticker.C:
			payload := types.BytesPayload(fmt.Sprintf("tick-%d", seqno))
			seqno++
			id, err := nodes[0].Broadcast(payload)
			if err != nil {
				logger.Errorf("plumcastd: broadcast failed: %v", err)
				continue
			}
			logger.Infof("plumcastd: node 0 broadcast %s", id)
		}
	}
}

func logDeliveries(ctx context.Context, logger types.Logger, n *core.Node) {
	for msg := range n.Run(ctx) {
		logger.Infof("plumcastd: node %s delivered %s: %q", n.ID(), msg.ID, msg.Content)
	}
}
