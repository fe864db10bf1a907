package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func TestSpanAttributesRendering(t *testing.T) {
	attrs := NewSpanAttributes(Fuzzing).
		WithTargetContract("SimpleStorage").
		WithCampaignCheck("property").
		WithCorpusSize(12).
		WithExtraAttribute("fuzzer.echidna.reproducers", 3)

	m := attrMap(attrs.Attributes())

	if m["fuzz.action.category"] != "fuzzing" {
		t.Errorf("fuzz.action.category = %q", m["fuzz.action.category"])
	}
	if m["fuzz.target.contract"] != "SimpleStorage" {
		t.Errorf("fuzz.target.contract = %q", m["fuzz.target.contract"])
	}
	if m["fuzz.campaign.check"] != "property" {
		t.Errorf("fuzz.campaign.check = %q", m["fuzz.campaign.check"])
	}
	if m["fuzz.corpus.size"] != "12" {
		t.Errorf("fuzz.corpus.size = %q", m["fuzz.corpus.size"])
	}
	if m["fuzzer.echidna.reproducers"] != "3" {
		t.Errorf("fuzzer.echidna.reproducers = %q", m["fuzzer.echidna.reproducers"])
	}
}

func TestMergeDoesNotOverwriteSetFields(t *testing.T) {
	target := EmptySpanAttributes().WithTargetContract("Kept")
	source := NewSpanAttributes(CorpusSync).
		WithTargetContract("Dropped").
		WithCampaignCheck("assertion")

	target.Merge(source)

	m := attrMap(target.Attributes())
	if m["fuzz.target.contract"] != "Kept" {
		t.Errorf("merge overwrote target contract: %q", m["fuzz.target.contract"])
	}
	if m["fuzz.campaign.check"] != "assertion" {
		t.Errorf("merge dropped unset field: %q", m["fuzz.campaign.check"])
	}
	// action category always follows the source
	if m["fuzz.action.category"] != "corpus_sync" {
		t.Errorf("merge did not update action category: %q", m["fuzz.action.category"])
	}
}

func TestMergeNilIsNoop(t *testing.T) {
	attrs := EmptySpanAttributes().WithCorpusSize(5)
	attrs.Merge(nil)
	m := attrMap(attrs.Attributes())
	if m["fuzz.corpus.size"] != "5" {
		t.Errorf("Merge(nil) changed attributes: %v", m)
	}
}

func TestFromContextFallsBackToDummy(t *testing.T) {
	tracer := FromContext(context.Background())
	if _, ok := tracer.(*DummyTracer); !ok {
		t.Errorf("FromContext on bare context = %T, want *DummyTracer", tracer)
	}
	// the dummy must be safe to drive end to end
	tracer.Start()
	tracer.AddEvent("noop", EventAttributes{})
	tracer.End()
}
