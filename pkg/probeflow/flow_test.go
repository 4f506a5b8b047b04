package probeflow

import (
	"context"
	"path/filepath"
	"testing"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	col := &stubCollector{}
	sink := &stubSink{}
	reg := NewRegistry()

	rt, err := flow.
		StreamIN(
			StreamInCollector(col),
			StreamInObservability(newStubObservability()),
		).
		StreamOUT(
			StreamOutSink(sink),
			StreamOutRegistry(reg),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	defer rt.Shutdown(context.Background())
	if rt.collector != col {
		t.Fatalf("expected custom collector to be wired")
	}
	if rt.sink != sink {
		t.Fatalf("expected custom sink to be wired")
	}
	if rt.Registry() != reg {
		t.Fatalf("expected shared registry to be wired")
	}
}

func TestStreamInReplayRequiresPath(t *testing.T) {
	flow, err := ConfFromConfig(testConfig(t))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	_, err = flow.
		StreamIN(
			StreamInReplay(ReplayConfig{}),
			StreamInObservability(newStubObservability()),
		).
		StreamOUT()
	if err == nil {
		t.Fatalf("expected replay without path to be rejected")
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	flow, err := ConfFromConfig(testConfig(t))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// Stop immediately; the stub collector never emits.
	cancel()
	if err := flow.StreamIN(
		StreamInCollector(&stubCollector{}),
		StreamInObservability(newStubObservability()),
	).Run(ctx,
		StreamOutSink(&stubSink{}),
	); err != nil && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestConfLoadsYAML(t *testing.T) {
	if _, err := Conf(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
