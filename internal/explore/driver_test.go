package explore

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/classify"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
)

type toolCall struct {
	tool string
	args map[string]any
}

// scriptedCaller answers tool calls from a function and records them.
type scriptedCaller struct {
	mu      sync.Mutex
	respond func(tool string, args map[string]any) *mcp.ToolResult
	calls   []toolCall
}

func (s *scriptedCaller) CallTool(_ context.Context, tool string, args map[string]any) *mcp.ToolResult {
	s.mu.Lock()
	s.calls = append(s.calls, toolCall{tool: tool, args: args})
	s.mu.Unlock()
	return s.respond(tool, args)
}

func (s *scriptedCaller) callsTo(tool string) []toolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []toolCall
	for _, c := range s.calls {
		if c.tool == tool {
			out = append(out, c)
		}
	}
	return out
}

func text(s string) *mcp.ToolResult {
	return &mcp.ToolResult{Content: []mcp.ContentItem{mcp.TextContent(s)}}
}

// countingRecorder counts verdicts per tool.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]map[classify.Verdict]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: make(map[string]map[classify.Verdict]int)}
}

func (r *countingRecorder) Record(method string, v classify.Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[method] == nil {
		r.counts[method] = make(map[classify.Verdict]int)
	}
	r.counts[method][v]++
}

func (r *countingRecorder) get(method string, v classify.Verdict) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[method][v]
}

func catalogsOnly() Config {
	cfg := DefaultConfig()
	cfg.MetaTypes = []string{"Catalogs"}
	cfg.PredefinedTypes = []string{"Catalogs"}
	cfg.PredefinedBias = 1
	return cfg
}

func metadataResponder(listing, predefined string) func(string, map[string]any) *mcp.ToolResult {
	return func(tool string, args map[string]any) *mcp.ToolResult {
		switch tool {
		case ToolListMetadataObjects:
			return text(listing)
		case ToolGetMetadataStructure:
			return text(`{"name":"` + args["name"].(string) + `"}`)
		case ToolListPredefinedData:
			return text(predefined)
		case ToolGetPredefinedData:
			return text(`{"predefined":"` + args["predefinedName"].(string) + `"}`)
		}
		return &mcp.ToolResult{IsError: true}
	}
}

func TestDriver_CatalogsRound(t *testing.T) {
	caller := &scriptedCaller{respond: metadataResponder(
		"Справочник.Номенклатура (Номенклатура)\nСправочник.Валюты (Валюты)\nСправочник.Банки (Банки)",
		"Имя: 'Основной'\nИмя: 'Дополнительный'\nИмя: 'Резервный'",
	)}
	rec := newCountingRecorder()
	d := NewDriver(caller, catalogsOnly(), Options{Recorder: rec})

	res := d.Round(context.Background(), 1, RoundRNG(42, 1))
	if res.Status != RoundCompleted {
		t.Fatalf("status = %v, want completed", res.Status)
	}
	if res.MetaType != "Catalogs" {
		t.Errorf("meta type = %q", res.MetaType)
	}

	list := caller.callsTo(ToolListMetadataObjects)
	if len(list) != 1 {
		t.Fatalf("expected 1 listing call, got %d", len(list))
	}
	maxItems := list[0].args["maxItems"].(int)
	if maxItems < 5 || maxItems > 20 {
		t.Errorf("maxItems %d outside [5,20]", maxItems)
	}
	mask := list[0].args["nameMask"].(string)
	if mask != "" && mask != "Номенклатура" && mask != "Документ" {
		t.Errorf("unexpected nameMask %q", mask)
	}

	structure := caller.callsTo(ToolGetMetadataStructure)
	if len(structure) != 1 {
		t.Fatalf("expected 1 structure call, got %d", len(structure))
	}
	obj := structure[0].args["name"].(string)
	if obj != "Номенклатура" && obj != "Валюты" && obj != "Банки" {
		t.Errorf("structure called for unexpected object %q", obj)
	}
	if obj != res.Object {
		t.Errorf("round object %q differs from structure call %q", res.Object, obj)
	}

	predef := caller.callsTo(ToolListPredefinedData)
	if len(predef) != 1 {
		t.Fatalf("expected 1 predefined listing call, got %d", len(predef))
	}
	if predef[0].args["maxItems"].(int) != maxItems {
		t.Error("predefined listing should reuse the round's maxItems")
	}

	details := caller.callsTo(ToolGetPredefinedData)
	if len(details) < 1 || len(details) > 3 {
		t.Fatalf("expected 1..3 detail calls, got %d", len(details))
	}
	seen := map[string]bool{}
	for _, c := range details {
		name := c.args["predefinedName"].(string)
		if seen[name] {
			t.Errorf("predefined item %q sampled twice", name)
		}
		seen[name] = true
		if c.args["name"] != obj {
			t.Errorf("detail call for object %v, want %q", c.args["name"], obj)
		}
	}

	if got := rec.get(ToolListMetadataObjects, classify.Success); got != 1 {
		t.Errorf("listing successes = %d", got)
	}
	if got := rec.get(ToolGetPredefinedData, classify.Success); got != len(details) {
		t.Errorf("detail successes = %d, want %d", got, len(details))
	}
	if res.Calls != 3+len(details) {
		t.Errorf("Calls = %d, want %d", res.Calls, 3+len(details))
	}
}

func TestDriver_ListingGates(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		status  RoundStatus
		verdict classify.Verdict
	}{
		{"empty string", "", RoundListingSkipped, classify.Skipped},
		{"empty sequence", "[]", RoundListingSkipped, classify.Skipped},
		{"error text", "Ошибка: тип не поддерживается", RoundListingError, classify.Error},
		{"error key", `{"error":"boom"}`, RoundListingError, classify.Error},
		{"no parsable names", `{"result":"   \n  "}`, RoundNoObjects, classify.Success},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &scriptedCaller{respond: metadataResponder(tt.listing, "Имя: 'Основной'")}
			rec := newCountingRecorder()
			d := NewDriver(caller, catalogsOnly(), Options{Recorder: rec})

			res := d.Round(context.Background(), 1, RoundRNG(1, 1))
			if res.Status != tt.status {
				t.Errorf("status = %v, want %v", res.Status, tt.status)
			}
			if n := len(caller.calls); n != 1 {
				t.Errorf("expected only the listing call, got %d calls", n)
			}
			if got := rec.get(ToolListMetadataObjects, tt.verdict); got != 1 {
				t.Errorf("listing %v count = %d", tt.verdict, got)
			}
		})
	}
}

func TestDriver_StructureFailureDoesNotAbort(t *testing.T) {
	base := metadataResponder("Catalogs.Валюты", "Имя: 'Рубль'")
	caller := &scriptedCaller{respond: func(tool string, args map[string]any) *mcp.ToolResult {
		if tool == ToolGetMetadataStructure {
			return &mcp.ToolResult{Content: []mcp.ContentItem{mcp.TextContent("Error: HTTP 500: boom")}, IsError: true}
		}
		return base(tool, args)
	}}
	rec := newCountingRecorder()
	d := NewDriver(caller, catalogsOnly(), Options{Recorder: rec})

	res := d.Round(context.Background(), 1, RoundRNG(3, 1))
	if res.Status != RoundCompleted {
		t.Errorf("status = %v, want completed", res.Status)
	}
	if got := rec.get(ToolGetMetadataStructure, classify.Error); got != 1 {
		t.Errorf("structure errors = %d", got)
	}
	if len(caller.callsTo(ToolListPredefinedData)) != 1 {
		t.Error("predefined listing should still run after a structure failure")
	}
}

func TestDriver_PredefinedGates(t *testing.T) {
	t.Run("predefined listing skipped", func(t *testing.T) {
		caller := &scriptedCaller{respond: metadataResponder("Catalogs.Валюты", "")}
		d := NewDriver(caller, catalogsOnly(), Options{})
		res := d.Round(context.Background(), 1, RoundRNG(1, 1))
		if res.Status != RoundPredefinedSkipped {
			t.Errorf("status = %v", res.Status)
		}
		if len(caller.callsTo(ToolGetPredefinedData)) != 0 {
			t.Error("no detail calls expected")
		}
	})

	t.Run("predefined listing error", func(t *testing.T) {
		caller := &scriptedCaller{respond: metadataResponder("Catalogs.Валюты", "Exception: access denied")}
		d := NewDriver(caller, catalogsOnly(), Options{})
		res := d.Round(context.Background(), 1, RoundRNG(1, 1))
		if res.Status != RoundPredefinedError {
			t.Errorf("status = %v", res.Status)
		}
	})

	t.Run("type without predefined data", func(t *testing.T) {
		caller := &scriptedCaller{respond: metadataResponder("Documents.Поступление", "Имя: 'X'")}
		cfg := DefaultConfig()
		cfg.MetaTypes = []string{"Documents"}
		cfg.PredefinedBias = 0
		d := NewDriver(caller, cfg, Options{})
		res := d.Round(context.Background(), 1, RoundRNG(1, 1))
		if res.Status != RoundCompleted || res.Calls != 2 {
			t.Errorf("status = %v calls = %d, want completed with 2 calls", res.Status, res.Calls)
		}
	})

	t.Run("sampling probability zero", func(t *testing.T) {
		caller := &scriptedCaller{respond: metadataResponder("Catalogs.Валюты", "Имя: 'X'")}
		cfg := catalogsOnly()
		cfg.PredefinedProbability = 0
		d := NewDriver(caller, cfg, Options{})
		res := d.Round(context.Background(), 1, RoundRNG(1, 1))
		if res.Calls != 2 {
			t.Errorf("calls = %d, want 2", res.Calls)
		}
	})
}

func TestDriver_SelectTypeBias(t *testing.T) {
	d := NewDriver(&scriptedCaller{}, DefaultConfig(), Options{})
	predefined := map[string]bool{}
	for _, name := range PredefinedTypes {
		predefined[name] = true
	}

	hits := 0
	const n = 5000
	for i := 0; i < n; i++ {
		if predefined[d.SelectType(RoundRNG(9, i))] {
			hits++
		}
	}
	// 0.7 + 0.3*4/43 ≈ 0.728
	ratio := float64(hits) / n
	if ratio < 0.68 || ratio > 0.78 {
		t.Errorf("predefined-capable ratio = %.3f, want about 0.73", ratio)
	}
}

// The meta-type chosen for a round depends only on the seed and the round
// index, never on how earlier rounds went.
func TestDriver_RoundIndependence(t *testing.T) {
	typesFor := func(respond func(string, map[string]any) *mcp.ToolResult) []string {
		obs := &roundCollector{}
		d := NewDriver(&scriptedCaller{respond: respond}, DefaultConfig(), Options{Observer: obs})
		NewRunner(d, 25, 1, 1234).Run(context.Background())
		return obs.metaTypes()
	}

	failing := func(string, map[string]any) *mcp.ToolResult {
		return &mcp.ToolResult{Content: []mcp.ContentItem{mcp.TextContent("Error: refused")}, IsError: true}
	}
	succeeding := metadataResponder("A.B\nA.C", "Имя: 'D'\nИмя: 'E'")

	a := typesFor(failing)
	b := typesFor(succeeding)
	if len(a) != 25 || len(b) != 25 {
		t.Fatalf("expected 25 rounds each, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("round %d: meta type %q vs %q", i+1, a[i], b[i])
		}
	}
}

type roundCollector struct {
	mu     sync.Mutex
	rounds []RoundResult
	calls  []CallRecord
}

func (c *roundCollector) CallCompleted(rec CallRecord) {
	c.mu.Lock()
	c.calls = append(c.calls, rec)
	c.mu.Unlock()
}

func (c *roundCollector) RoundCompleted(res RoundResult) {
	c.mu.Lock()
	c.rounds = append(c.rounds, res)
	c.mu.Unlock()
}

func (c *roundCollector) metaTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.rounds))
	for i, r := range c.rounds {
		out[i] = r.MetaType
	}
	return out
}

func TestDriver_ObserverSeesEveryCall(t *testing.T) {
	obs := &roundCollector{}
	caller := &scriptedCaller{respond: metadataResponder("A.B", "Имя: 'X'")}
	d := NewDriver(caller, catalogsOnly(), Options{Observer: Observers{obs}})

	d.Round(context.Background(), 7, RoundRNG(5, 7))
	if len(obs.calls) != len(caller.calls) {
		t.Fatalf("observer saw %d calls, caller saw %d", len(obs.calls), len(caller.calls))
	}
	if obs.calls[0].Step != StepListObjects || obs.calls[0].Round != 7 {
		t.Errorf("unexpected first record: %+v", obs.calls[0])
	}
	if len(obs.rounds) != 1 || obs.rounds[0].Round != 7 {
		t.Errorf("unexpected rounds: %+v", obs.rounds)
	}
	for _, rec := range obs.calls {
		if !strings.HasPrefix(rec.Tool, "get_") && !strings.HasPrefix(rec.Tool, "list_") {
			t.Errorf("unexpected tool %q", rec.Tool)
		}
	}
}
