package flagship

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/TimurManjosov/flagship-go/internal/testutil"
)

const testFlags = `{"flags":[
	{"key":"dark-mode","enabled":true,"valueA":true,"valueB":false,
	 "rolloutEnabled":false,"defaultValue":"A"},
	{"key":"legacy-checkout","enabled":false,"valueA":true,"valueB":false,
	 "defaultValue":"B"}
]}`

const testExperiments = `{"experiments":[
	{"key":"pricing-test","status":"running",
	 "variations":[
	   {"key":"control","name":"Control","value":"old","isControl":true},
	   {"key":"treatment","name":"Treatment","value":"new"}
	 ],
	 "trafficAllocation":[
	   {"variationKey":"control","percentage":50},
	   {"variationKey":"treatment","percentage":50}
	 ]}
]}`

func newTestClient(t *testing.T) (*Client, *testutil.APIStub) {
	t.Helper()

	stub := testutil.NewAPIStub(t)
	stub.SetFlags(testFlags)
	stub.SetExperiments(testExperiments)
	stub.SetConfig("stable", `{"configs":{"apiTimeout":30,"welcomeText":"hello"}}`)

	client, err := New(Options{
		Platform:       "ios",
		Environment:    "prod",
		APIKey:         "test-key",
		BaseURL:        stub.Server.URL,
		StatsBatchSize: 100,
		StatsRetryBase: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, stub
}

// batchEventTypes flattens all posted batches into the ordered list of event
// type strings.
func batchEventTypes(t *testing.T, stub *testutil.APIStub) []string {
	t.Helper()

	var types []string
	for _, raw := range stub.EventBatches() {
		var batch struct {
			Events []struct {
				Type string `json:"type"`
			} `json:"events"`
		}
		if err := json.Unmarshal(raw, &batch); err != nil {
			t.Fatalf("unmarshal batch: %v", err)
		}
		for _, ev := range batch.Events {
			types = append(types, ev.Type)
		}
	}
	return types
}

func TestClient_GetFlag(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	result, err := client.GetFlag(ctx, "dark-mode", FlagContext{Identity: "user-1"})
	if err != nil {
		t.Fatalf("GetFlag: %v", err)
	}
	if result.FlagKey != "dark-mode" {
		t.Errorf("FlagKey = %q", result.FlagKey)
	}
	if result.ServedValue != "A" {
		t.Errorf("ServedValue = %q, want A", result.ServedValue)
	}
	if client.PendingEvents() != 1 {
		t.Errorf("pending events = %d, want 1", client.PendingEvents())
	}
}

func TestClient_GetFlag_UnknownKey(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.GetFlag(context.Background(), "no-such-flag", FlagContext{})
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	var nfErr *NotFoundError
	errors.As(err, &nfErr)
	if nfErr.Kind != "flag" || nfErr.Key != "no-such-flag" {
		t.Errorf("NotFoundError = %+v", nfErr)
	}
}

func TestClient_IsFlagEnabled(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	if !client.IsFlagEnabled(ctx, "dark-mode", FlagContext{Identity: "u"}, false) {
		t.Error("dark-mode should resolve enabled")
	}

	// Unknown keys collapse to the caller's default, never an error.
	if client.IsFlagEnabled(ctx, "missing", FlagContext{}, false) {
		t.Error("missing flag should yield default false")
	}
	if !client.IsFlagEnabled(ctx, "missing", FlagContext{}, true) {
		t.Error("missing flag should yield default true")
	}

	// Disabled flags serve their configured default side, here B.
	if client.IsFlagEnabled(ctx, "legacy-checkout", FlagContext{Identity: "u"}, true) {
		t.Error("disabled flag serving side B should report false")
	}
	_ = stub
}

func TestClient_IsFlagEnabled_NetworkFailure(t *testing.T) {
	stub := testutil.NewAPIStub(t)
	stub.FailWith(503)

	client, err := New(Options{
		Platform:    "ios",
		Environment: "prod",
		APIKey:      "test-key",
		BaseURL:     stub.Server.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !client.IsFlagEnabled(context.Background(), "dark-mode", FlagContext{}, true) {
		t.Error("unreachable API should yield the caller's default")
	}
}

func TestClient_GetFlagInfo(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	def := client.GetFlagInfo(ctx, "dark-mode")
	if def == nil || def.Key != "dark-mode" || !def.Enabled {
		t.Fatalf("GetFlagInfo = %+v", def)
	}
	if client.GetFlagInfo(ctx, "missing") != nil {
		t.Error("unknown key should yield nil")
	}
	if client.PendingEvents() != 0 {
		t.Error("GetFlagInfo must not record events")
	}
}

func TestClient_GetVariant_RecordsExposure(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	assignment, err := client.GetVariant(ctx, "pricing-test", ExperimentContext{Identity: "user-1"})
	if err != nil {
		t.Fatalf("GetVariant: %v", err)
	}
	if assignment == nil {
		t.Fatal("expected an assignment for full traffic allocation")
	}
	if assignment.ExperimentKey != "pricing-test" {
		t.Errorf("ExperimentKey = %q", assignment.ExperimentKey)
	}

	// Same identity, same variant.
	again, err := client.GetVariant(ctx, "pricing-test", ExperimentContext{Identity: "user-1"})
	if err != nil {
		t.Fatalf("GetVariant again: %v", err)
	}
	if again.VariationKey != assignment.VariationKey {
		t.Errorf("assignment not stable: %q then %q", assignment.VariationKey, again.VariationKey)
	}

	client.FlushStats(ctx)
	types := batchEventTypes(t, stub)
	if len(types) != 2 || types[0] != "experiment_exposure" || types[1] != "experiment_exposure" {
		t.Errorf("event types = %v, want two exposures", types)
	}
}

func TestClient_GetVariant_UnknownKey(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.GetVariant(context.Background(), "missing", ExperimentContext{Identity: "u"})
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestClient_TrackConversion_NoExposureInflation(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	value := 19.99
	err := client.TrackConversion(ctx, "pricing-test", ExperimentContext{Identity: "user-1"},
		"purchase", &ConversionOptions{Value: &value})
	if err != nil {
		t.Fatalf("TrackConversion: %v", err)
	}

	client.FlushStats(ctx)
	types := batchEventTypes(t, stub)
	if len(types) != 1 || types[0] != "conversion" {
		t.Fatalf("event types = %v, want exactly one conversion", types)
	}

	var batch struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(stub.EventBatches()[0], &batch); err != nil {
		t.Fatalf("unmarshal batch: %v", err)
	}
	ev := batch.Events[0]
	if ev["metric"] != "purchase" {
		t.Errorf("metric = %v", ev["metric"])
	}
	if ev["value"] != 19.99 {
		t.Errorf("value = %v", ev["value"])
	}
}

func TestClient_TrackConversion_UnassignedIdentity(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	// Empty identity never buckets, so no assignment and no event.
	err := client.TrackConversion(ctx, "pricing-test", ExperimentContext{}, "purchase", nil)
	if err != nil {
		t.Fatalf("TrackConversion: %v", err)
	}
	if client.PendingEvents() != 0 {
		t.Errorf("pending events = %d, want 0", client.PendingEvents())
	}
	_ = stub
}

func TestClient_TrackEvent(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	client.TrackEvent(ctx, "app_opened", "user-1", &EventOptions{Country: "DE", Language: "de"})
	client.FlushStats(ctx)

	var batch struct {
		Events []map[string]any `json:"events"`
	}
	batches := stub.EventBatches()
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	if err := json.Unmarshal(batches[0], &batch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ev := batch.Events[0]
	if ev["type"] != "custom" || ev["name"] != "app_opened" || ev["country"] != "DE" {
		t.Errorf("event = %v", ev)
	}
}

func TestClient_GetConfigValue(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if got := client.GetConfigValue(ctx, "welcomeText", "fallback"); got != "hello" {
		t.Errorf("welcomeText = %v", got)
	}
	// JSON numbers decode as float64.
	if got := client.GetConfigValue(ctx, "apiTimeout", 0); got != float64(30) {
		t.Errorf("apiTimeout = %v", got)
	}
	if got := client.GetConfigValue(ctx, "absent", "fallback"); got != "fallback" {
		t.Errorf("absent key = %v, want fallback", got)
	}
}

func TestClient_GetConfigValue_FailureYieldsDefault(t *testing.T) {
	stub := testutil.NewAPIStub(t)
	stub.FailWith(500)

	client, err := New(Options{
		Platform:    "ios",
		Environment: "prod",
		APIKey:      "test-key",
		BaseURL:     stub.Server.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := client.GetConfigValue(context.Background(), "anything", 42); got != 42 {
		t.Errorf("got %v, want default 42", got)
	}
}

func TestClient_GetAllConfigs(t *testing.T) {
	client, _ := newTestClient(t)

	configs, err := client.GetAllConfigs(context.Background())
	if err != nil {
		t.Fatalf("GetAllConfigs: %v", err)
	}
	if len(configs) != 2 {
		t.Errorf("len = %d, want 2", len(configs))
	}
}

func TestClient_Refresh(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	// Warm every tier, then refresh; each tier must be refetched.
	if _, err := client.GetFlag(ctx, "dark-mode", FlagContext{Identity: "u"}); err != nil {
		t.Fatalf("warm flags: %v", err)
	}
	if _, err := client.GetVariant(ctx, "pricing-test", ExperimentContext{Identity: "u"}); err != nil {
		t.Fatalf("warm experiments: %v", err)
	}
	client.GetConfigValue(ctx, "welcomeText", nil)

	if err := client.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if got := stub.GetCount("/v1/flags"); got != 2 {
		t.Errorf("flags fetches = %d, want 2", got)
	}
	if got := stub.GetCount("/v1/experiments"); got != 2 {
		t.Errorf("experiment fetches = %d, want 2", got)
	}
	if got := stub.GetCount("/v1/configs"); got != 2 {
		t.Errorf("config fetches = %d, want 2", got)
	}
}

func TestClient_ClearCache(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	client.GetFlagInfo(ctx, "dark-mode")
	client.GetFlagInfo(ctx, "dark-mode")
	if got := stub.GetCount("/v1/flags"); got != 1 {
		t.Fatalf("flags fetches before clear = %d, want 1", got)
	}

	if err := client.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}

	client.GetFlagInfo(ctx, "dark-mode")
	if got := stub.GetCount("/v1/flags"); got != 2 {
		t.Errorf("flags fetches after clear = %d, want 2", got)
	}
}

func TestClient_Close_FlushesPending(t *testing.T) {
	client, stub := newTestClient(t)
	ctx := context.Background()

	client.TrackEvent(ctx, "shutdown", "user-1", nil)
	if err := client.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.PendingEvents() != 0 {
		t.Errorf("pending after close = %d", client.PendingEvents())
	}
	if len(stub.EventBatches()) != 1 {
		t.Errorf("batches = %d, want 1", len(stub.EventBatches()))
	}
}
