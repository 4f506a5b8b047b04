package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/ProbeFlow/pkg/probeflow"
)

func main() {
	flow, err := probeflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []*probeflow.Event) error {
		for _, e := range batch {
			if e.Kind != probeflow.EventSampleRecorded {
				fmt.Printf("%s probe=%04X %s session=%d\n",
					e.ObservedAt.Format(time.RFC3339), e.ProbeSerial, e.Kind, e.SessionID)
				continue
			}
			fmt.Printf("%s probe=%04X session=%d seq=%d temps=%v\n",
				e.ObservedAt.Format(time.RFC3339),
				e.ProbeSerial,
				e.SessionID,
				e.Sample.SequenceNumber,
				e.Sample.Temperatures,
			)
		}
		return nil
	}

	if err := flow.Run(ctx, probeflow.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
