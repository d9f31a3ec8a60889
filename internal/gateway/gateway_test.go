package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/events"
	"github.com/p-n-ai/preppysphere/internal/gateway"
	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/platform/cache"
	"github.com/p-n-ai/preppysphere/internal/wellness"
)

const testKey = "test-key-0123456789"

var today = time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC)

type fixture struct {
	gw     *gateway.Gateway
	mock   *ai.MockProvider
	store  *cache.Memory
	cache  *wellness.DailyCache
	events *events.MemoryLogger
}

func newFixture(t *testing.T, key, response string, mutate ...func(*gateway.Config)) *fixture {
	t.Helper()
	f := &fixture{
		mock:   ai.NewMockProvider(response),
		store:  cache.NewMemory(),
		events: events.NewMemoryLogger(),
	}
	f.cache = wellness.NewDailyCache(f.store, wellness.WithClock(func() time.Time { return today }))

	cfg := gateway.Config{
		APIKey:   key,
		Provider: f.mock,
		Cache:    f.cache,
		Events:   f.events,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	gw, err := gateway.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.gw = gw
	return f
}

func TestStudyPlan(t *testing.T) {
	f := newFixture(t, testKey, `{"subject":"Calculus","duration":"3 hours","tasks":["Limits","Derivatives"],"tips":"Take breaks"}`)

	plan, err := f.gw.StudyPlan(context.Background(), intent.StudyPlanRequest{Subject: "Calculus", Duration: "3 hours"})
	if err != nil {
		t.Fatalf("StudyPlan() error = %v", err)
	}
	if len(plan.Tasks) != 2 || plan.Tasks[1] != "Derivatives" {
		t.Errorf("tasks = %v", plan.Tasks)
	}

	req, ok := f.mock.LastRequest()
	if !ok {
		t.Fatal("provider was not called")
	}
	if req.Schema == nil {
		t.Error("study plan request should carry a schema")
	}
	if req.Model != ai.DefaultModel {
		t.Errorf("model = %q, want %q", req.Model, ai.DefaultModel)
	}
	if !strings.Contains(req.Prompt, "Calculus") || !strings.Contains(req.Prompt, "3 hours") {
		t.Errorf("prompt = %q", req.Prompt)
	}
}

func TestStudyPlan_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty text", ""},
		{"whitespace", "   \n"},
		{"not json", "Here is your plan: study hard"},
		{"missing tasks", `{"subject":"Math","duration":"1 hour","tips":"x"}`},
		{"empty tasks", `{"subject":"Math","duration":"1 hour","tasks":[],"tips":"x"}`},
		{"tasks wrong type", `{"subject":"Math","duration":"1 hour","tasks":"read","tips":"x"}`},
		{"array instead of object", `[1,2,3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testKey, tt.response)
			_, err := f.gw.StudyPlan(context.Background(), intent.StudyPlanRequest{Subject: "Math"})
			if !errors.Is(err, ai.ErrMalformed) {
				t.Fatalf("error = %v, want malformed", err)
			}
			if ai.KindOf(err) != ai.KindMalformedResponse {
				t.Errorf("kind = %v, want malformed_response", ai.KindOf(err))
			}
		})
	}
}

func TestCategorizeIssue(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		want      intent.IssueCategory
		malformed bool
	}{
		{"valid", `{"category":"Infrastructure","routing":"Campus Maintenance"}`, intent.CategoryInfrastructure, false},
		{"ampersand category", `{"category":"Sports & Clubs","routing":"Athletics Office"}`, intent.CategorySportsClubs, false},
		{"outside enum", `{"category":"Food","routing":"Cafeteria"}`, "", true},
		{"wrong case", `{"category":"safety","routing":"Security"}`, "", true},
		{"missing routing", `{"category":"Academic"}`, "", true},
		{"blank routing", `{"category":"Academic","routing":"  "}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testKey, tt.response)
			got, err := f.gw.CategorizeIssue(context.Background(), intent.IssueCategorizationRequest{
				Title:       "Broken projector",
				Description: "Room 204 projector flickers",
			})
			if tt.malformed {
				if !errors.Is(err, ai.ErrMalformed) {
					t.Fatalf("error = %v, want malformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CategorizeIssue() error = %v", err)
			}
			if got.Category != tt.want {
				t.Errorf("category = %q, want %q", got.Category, tt.want)
			}
		})
	}
}

func TestMissingCredential_NoTransportCall(t *testing.T) {
	keys := []string{"", "   ", "undefined", "short"}
	for _, key := range keys {
		f := newFixture(t, key, `{}`)
		ctx := context.Background()

		_, err1 := f.gw.StudyPlan(ctx, intent.StudyPlanRequest{Subject: "Math"})
		_, err2 := f.gw.CategorizeIssue(ctx, intent.IssueCategorizationRequest{Title: "t", Description: "d"})
		_, err3 := f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 5}, gateway.WellnessOptions{})
		_, err4 := f.gw.SolveDoubt(ctx, intent.DoubtRequest{Question: "What is gravity?"})

		for i, err := range []error{err1, err2, err3, err4} {
			if !errors.Is(err, ai.ErrMissingCredential) {
				t.Errorf("key %q op %d: error = %v, want missing credential", key, i, err)
			}
			if ai.KindOf(err) != ai.KindMissingCredential {
				t.Errorf("key %q op %d: kind = %v", key, i, ai.KindOf(err))
			}
		}
		if n := f.mock.Calls(); n != 0 {
			t.Errorf("key %q: provider calls = %d, want 0", key, n)
		}
	}
}

func TestMissingCredential_SkipsCache(t *testing.T) {
	f := newFixture(t, "", "")
	f.cache.Write(context.Background(), []intent.WellnessTip{{Category: intent.TipMental, Tip: "a", Action: "b"}}, 5)

	_, err := f.gw.WellnessTips(context.Background(), intent.WellnessTipsRequest{StressLevel: 5}, gateway.WellnessOptions{})
	if !errors.Is(err, ai.ErrMissingCredential) {
		t.Fatalf("error = %v, want missing credential", err)
	}
}

func TestSolveDoubt(t *testing.T) {
	f := newFixture(t, testKey, "## Gravity\n**Gravity** pulls things down. It costs $0 to fall!")

	answer, err := f.gw.SolveDoubt(context.Background(), intent.DoubtRequest{Question: "What is gravity?"})
	if err != nil {
		t.Fatalf("SolveDoubt() error = %v", err)
	}
	want := " Gravity\nGravity pulls things down. It costs 0 to fall!"
	if answer != want {
		t.Errorf("answer = %q, want %q", answer, want)
	}

	req, _ := f.mock.LastRequest()
	if req.Schema != nil {
		t.Error("doubt request should not carry a schema")
	}
	if req.Temperature == nil || *req.Temperature != intent.DoubtTemperature {
		t.Errorf("temperature = %v, want %v", req.Temperature, intent.DoubtTemperature)
	}
}

func TestSolveDoubt_EmptyAnswer(t *testing.T) {
	f := newFixture(t, testKey, "  \n ")
	answer, err := f.gw.SolveDoubt(context.Background(), intent.DoubtRequest{Question: "Why?"})
	if err != nil {
		t.Fatalf("SolveDoubt() error = %v", err)
	}
	if answer != gateway.EmptyAnswer {
		t.Errorf("answer = %q, want %q", answer, gateway.EmptyAnswer)
	}
}

func TestWellnessTips_GeneralFetchWritesCache(t *testing.T) {
	f := newFixture(t, testKey, `[{"category":"mental","tip":"X","action":"Y"}]`)
	ctx := context.Background()

	res, err := f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 8}, gateway.WellnessOptions{})
	if err != nil {
		t.Fatalf("WellnessTips() error = %v", err)
	}
	want := intent.WellnessTip{Category: intent.TipMental, Tip: "X", Action: "Y", Completed: false}
	if len(res.Tips) != 1 || res.Tips[0] != want {
		t.Errorf("tips = %+v, want [%+v]", res.Tips, want)
	}
	if res.Source != wellness.SourceLive || res.StressLevel != 8 {
		t.Errorf("result = %+v, want live at stress 8", res)
	}

	entry, ok, err := f.cache.Read(ctx)
	if err != nil || !ok {
		t.Fatalf("cache Read() = %v, %v; want present", ok, err)
	}
	if entry.Date != "2026-10-18" || entry.StressLevel != 8 || len(entry.Tips) != 1 || entry.Tips[0] != want {
		t.Errorf("cache entry = %+v", entry)
	}
}

func TestWellnessTips_QueryFailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t, testKey, "")
	ctx := context.Background()
	f.mock.Err = errors.New("googleapi: got HTTP response code 429 with body: Resource has been exhausted")

	_, err := f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 4, Query: "exam anxiety"}, gateway.WellnessOptions{ForceRefresh: true})
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("error = %v, want rate limited", err)
	}
	if _, ok, _ := f.store.Get(ctx, wellness.DefaultCacheKey); ok {
		t.Error("query-scoped failure should not write the cache")
	}
}

func TestWellnessTips_CacheHitSkipsTransport(t *testing.T) {
	f := newFixture(t, testKey, `[{"category":"social","tip":"live","action":"a"}]`)
	ctx := context.Background()
	cached := []intent.WellnessTip{{Category: intent.TipPhysical, Tip: "cached", Action: "walk", Completed: true}}
	f.cache.Write(ctx, cached, 6)

	res, err := f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 3}, gateway.WellnessOptions{})
	if err != nil {
		t.Fatalf("WellnessTips() error = %v", err)
	}
	if res.Source != wellness.SourceCache || res.StressLevel != 6 {
		t.Errorf("result = %+v, want cache at stress 6", res)
	}
	if len(res.Tips) != 1 || !res.Tips[0].Completed {
		t.Errorf("tips = %+v, want cached tip with completion kept", res.Tips)
	}
	if n := f.mock.Calls(); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestWellnessTips_ForceRefreshBypassesCache(t *testing.T) {
	f := newFixture(t, testKey, `[{"category":"social","tip":"fresh","action":"a"}]`)
	ctx := context.Background()
	f.cache.Write(ctx, []intent.WellnessTip{{Category: intent.TipPhysical, Tip: "old", Action: "b"}}, 2)

	res, err := f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 9}, gateway.WellnessOptions{ForceRefresh: true})
	if err != nil {
		t.Fatalf("WellnessTips() error = %v", err)
	}
	if res.Source != wellness.SourceLive || res.Tips[0].Tip != "fresh" {
		t.Errorf("result = %+v, want fresh live tips", res)
	}
	entry, _, _ := f.cache.Read(ctx)
	if entry.Tips[0].Tip != "fresh" || entry.StressLevel != 9 {
		t.Errorf("cache entry = %+v, want overwritten", entry)
	}
}

func TestWellnessTips_QuerySuccessDoesNotWriteCache(t *testing.T) {
	f := newFixture(t, testKey, `[{"category":"mental","tip":"q","action":"a"}]`)
	ctx := context.Background()

	res, err := f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 5, Query: "sleep"}, gateway.WellnessOptions{})
	if err != nil {
		t.Fatalf("WellnessTips() error = %v", err)
	}
	if res.Source != wellness.SourceLive {
		t.Errorf("source = %q, want live", res.Source)
	}
	if _, ok, _ := f.store.Get(ctx, wellness.DefaultCacheKey); ok {
		t.Error("query result should not be cached")
	}
	req, _ := f.mock.LastRequest()
	if !strings.Contains(req.Prompt, `"sleep"`) {
		t.Errorf("prompt = %q, want quoted query", req.Prompt)
	}
}

func TestWellnessTips_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty array":     `[]`,
		"bad category":    `[{"category":"spiritual","tip":"x","action":"y"}]`,
		"missing action":  `[{"category":"mental","tip":"x"}]`,
		"object not list": `{"category":"mental","tip":"x","action":"y"}`,
	}
	for name, response := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, testKey, response)
			_, err := f.gw.WellnessTips(context.Background(), intent.WellnessTipsRequest{StressLevel: 5}, gateway.WellnessOptions{})
			if !errors.Is(err, ai.ErrMalformed) {
				t.Fatalf("error = %v, want malformed", err)
			}
			if _, ok, _ := f.store.Get(context.Background(), wellness.DefaultCacheKey); ok {
				t.Error("failure should not write the cache")
			}
		})
	}
}

func TestWellnessTips_CompletedResetOnLiveResult(t *testing.T) {
	f := newFixture(t, testKey, `[{"category":"mental","tip":"x","action":"y","completed":true}]`)
	res, err := f.gw.WellnessTips(context.Background(), intent.WellnessTipsRequest{StressLevel: 5, Query: "stress"}, gateway.WellnessOptions{})
	if err != nil {
		t.Fatalf("WellnessTips() error = %v", err)
	}
	if res.Tips[0].Completed {
		t.Error("live tips should start incomplete")
	}
}

func TestInvalidRequest_NoTransportCall(t *testing.T) {
	f := newFixture(t, testKey, "{}")
	ctx := context.Background()

	_, err1 := f.gw.StudyPlan(ctx, intent.StudyPlanRequest{Subject: " "})
	_, err2 := f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 11}, gateway.WellnessOptions{})
	_, err3 := f.gw.SolveDoubt(ctx, intent.DoubtRequest{})

	for i, err := range []error{err1, err2, err3} {
		if !errors.Is(err, intent.ErrInvalidRequest) {
			t.Errorf("op %d: error = %v, want ErrInvalidRequest", i, err)
		}
	}
	if n := f.mock.Calls(); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestBudgetExhausted(t *testing.T) {
	budget := ai.NewInMemoryBudget()
	budget.SetBudget("student", 5)
	budget.Record("student", 10)

	f := newFixture(t, testKey, "answer", func(c *gateway.Config) {
		c.Budget = budget
		c.BudgetScope = "student"
	})

	_, err := f.gw.SolveDoubt(context.Background(), intent.DoubtRequest{Question: "Why is the sky blue?"})
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("error = %v, want rate limited", err)
	}
	if !errors.Is(err, gateway.ErrBudgetExhausted) {
		t.Errorf("error = %v, want budget cause", err)
	}
	if n := f.mock.Calls(); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestBudgetRecordsUsage(t *testing.T) {
	budget := ai.NewInMemoryBudget()
	f := newFixture(t, testKey, "answer", func(c *gateway.Config) { c.Budget = budget })

	if _, err := f.gw.SolveDoubt(context.Background(), intent.DoubtRequest{Question: "Why?"}); err != nil {
		t.Fatalf("SolveDoubt() error = %v", err)
	}
	used, _, _ := budget.Usage(gateway.DefaultBudgetScope)
	// MockProvider reports 10 input tokens plus one per response byte.
	if used != 16 {
		t.Errorf("used = %d, want 16", used)
	}
}

func TestProbeOffline(t *testing.T) {
	probe := ai.ReachabilityFunc(func(context.Context) error {
		return errors.New("dial tcp: connect: network is unreachable")
	})
	f := newFixture(t, testKey, "answer", func(c *gateway.Config) { c.Probe = probe })

	_, err := f.gw.SolveDoubt(context.Background(), intent.DoubtRequest{Question: "Why?"})
	if !errors.Is(err, ai.ErrOffline) {
		t.Fatalf("error = %v, want offline", err)
	}
	if !ai.KindOf(err).Retryable() {
		t.Error("offline should be retryable")
	}
	if n := f.mock.Calls(); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestEventsRecorded(t *testing.T) {
	f := newFixture(t, testKey, `[{"category":"mental","tip":"X","action":"Y"}]`)
	ctx := context.Background()

	f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 5}, gateway.WellnessOptions{})
	f.gw.WellnessTips(ctx, intent.WellnessTipsRequest{StressLevel: 5}, gateway.WellnessOptions{})
	f.mock.Err = &ai.StatusError{StatusCode: http.StatusServiceUnavailable, Body: "overloaded"}
	f.gw.SolveDoubt(ctx, intent.DoubtRequest{Question: "Why?"})

	got := f.events.OfType(events.TypeAIRequest)
	if len(got) != 3 {
		t.Fatalf("events = %d, want 3", len(got))
	}
	wantOutcomes := []string{gateway.OutcomeLive, gateway.OutcomeCache, gateway.OutcomeFailure}
	for i, want := range wantOutcomes {
		if got[i].Data["outcome"] != want {
			t.Errorf("event %d outcome = %v, want %s", i, got[i].Data["outcome"], want)
		}
	}
	if got[2].Data["kind"] != "server_error" || got[2].Data["intent"] != "doubt" {
		t.Errorf("failure event data = %v", got[2].Data)
	}
}

func TestDefaultProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"unauthorized"}}`, ai.ErrInvalidCredential},
		{"bad key", http.StatusBadRequest, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, ai.ErrInvalidCredential},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, ai.ErrRateLimited},
		{"server", http.StatusInternalServerError, `{"error":{"message":"internal"}}`, ai.ErrServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("key"); got != testKey {
					t.Errorf("key = %q, want %q", got, testKey)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			gw, err := gateway.New(gateway.Config{APIKey: testKey, BaseURL: srv.URL}, gateway.WithHTTPClient(srv.Client()))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			_, err = gw.StudyPlan(context.Background(), intent.StudyPlanRequest{Subject: "Physics"})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefaultProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"category\":\"Safety\",\"routing\":\"Campus Security\"}"}]}}]}`))
	}))
	defer srv.Close()

	gw, err := gateway.New(gateway.Config{APIKey: testKey, BaseURL: srv.URL, Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := gw.CategorizeIssue(t.Context(), intent.IssueCategorizationRequest{Title: "Dark path", Description: "No lights near the hostel"})
	if err != nil {
		t.Fatalf("CategorizeIssue() error = %v", err)
	}
	if got.Category != intent.CategorySafety || got.Routing != "Campus Security" {
		t.Errorf("got %+v", got)
	}
}

func TestImplementsTipSource(t *testing.T) {
	var _ wellness.TipSource = (*gateway.Gateway)(nil)
}
