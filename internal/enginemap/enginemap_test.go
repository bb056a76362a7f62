package enginemap

import "testing"

func TestMetricName(t *testing.T) {
	cases := []struct {
		kind Kind
		sem  Semantic
		want string
	}{
		{VLLM, WaitingQueue, "vllm:num_requests_waiting"},
		{VLLM, CacheUsage, "vllm:gpu_cache_usage_perc"},
		{SGLANG, WaitingQueue, "sglang:num_queue_reqs"},
		{SGLANG, CacheUsage, "sglang:token_usage"},
	}
	for _, c := range cases {
		got, err := MetricName(c.kind, c.sem)
		if err != nil {
			t.Fatalf("MetricName(%s, %s): unexpected error: %v", c.kind, c.sem, err)
		}
		if got != c.want {
			t.Errorf("MetricName(%s, %s) = %q, want %q", c.kind, c.sem, got, c.want)
		}
	}
}

func TestMetricNameUnknownKind(t *testing.T) {
	if _, err := MetricName("BOGUS", WaitingQueue); err == nil {
		t.Fatal("expected error for unknown engine kind")
	}
}

func TestValid(t *testing.T) {
	if !Valid(VLLM) || !Valid(SGLANG) {
		t.Fatal("expected VLLM and SGLANG to be valid")
	}
	if Valid("BOGUS") {
		t.Fatal("expected BOGUS to be invalid")
	}
}

func TestRawNameToSemantic(t *testing.T) {
	inv := RawNameToSemantic(VLLM)
	if inv["vllm:num_requests_waiting"] != WaitingQueue {
		t.Errorf("expected waiting queue mapping, got %v", inv["vllm:num_requests_waiting"])
	}
}
