package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var statsTargets = []string{
	"probeflow_events_applied_total",
	"probeflow_samples_archived_total",
	"probeflow_dlq_total",
	"probeflow_queue_length",
	"probeflow_wal_size_bytes",
	"probeflow_probes_tracked",
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Poll the Prometheus metrics endpoint and print live counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			interval, _ := cmd.Flags().GetDuration("interval")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(url); err != nil {
						fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
					}
				}
			}
		},
	}

	cmd.Flags().String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	cmd.Flags().Duration("interval", 2*time.Second, "Refresh interval")

	return cmd
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeMetrics(resp.Body, statsTargets)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] applied=%.0f archived=%.0f dlq=%.0f queue=%.0f wal_bytes=%.0f probes=%.0f\n",
		time.Now().Format(time.RFC3339),
		values["probeflow_events_applied_total"],
		values["probeflow_samples_archived_total"],
		values["probeflow_dlq_total"],
		values["probeflow_queue_length"],
		values["probeflow_wal_size_bytes"],
		values["probeflow_probes_tracked"],
	)
	return nil
}

// scrapeMetrics reads unlabelled samples for the given names from the
// Prometheus text format. Missing names read as zero.
func scrapeMetrics(r io.Reader, names []string) (map[string]float64, error) {
	values := make(map[string]float64, len(names))
	for _, n := range names {
		values[n] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range names {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					values[key] = value
				}
			}
		}
	}
	return values, scanner.Err()
}
