package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/ProbeFlow"
)

func main() {
	flow, err := probeflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := probeflow.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("archive", batches)

	if err := flow.Run(ctx, probeflow.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []*probeflow.Event) {
	for batch := range batches {
		samples := 0
		for _, e := range batch {
			if e.Kind == probeflow.EventSampleRecorded {
				samples++
			}
		}
		fmt.Printf("[%s] %d events (%d samples) at %s\n", name, len(batch), samples, time.Now().Format(time.RFC3339))
	}
}
