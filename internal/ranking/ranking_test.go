package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/community-ranker/internal/community"
	ct "github.com/spigell/community-ranker/internal/community/communitytest"
	"github.com/spigell/community-ranker/internal/filtering"
	"github.com/spigell/community-ranker/internal/scoring"
)

var westAndCentral = filtering.Needs{
	PriceRangeLower: "400",
	PriceRangeUpper: "600",
	AgeOfHome:       "5",
	Location:        []string{"West Valley", "Central"},
	SizeOfCommunity: []string{"Small", "Medium"},
}

func scoredTable(s *community.Schema, scores map[string]float64, order ...string) *community.Table {
	t := community.NewTable(s.PrimaryKey, []string{s.Score})
	for _, key := range order {
		row := community.NewRow(key)
		if v, ok := scores[key]; ok {
			row.Set(s.Score, community.Number(v))
		}
		t.Append(row)
	}
	return t
}

func TestRankSortsDescending(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	scored, err := scoring.New(s, nil).Score(ct.Wants(s), ct.Preferences)
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	ranked := Rank(s, scored)
	if ranked.Len() != scored.Len() {
		t.Fatalf("expected %d rows, got %d", scored.Len(), ranked.Len())
	}
	for i := 0; i+1 < ranked.Len(); i++ {
		a, _ := ranked.Rows[i].Get(s.Score).Float()
		b, _ := ranked.Rows[i+1].Get(s.Score).Float()
		if a < b {
			t.Fatalf("row %d (%s=%v) ranked above a higher score (%s=%v)", i, ranked.Rows[i].Key, a, ranked.Rows[i+1].Key, b)
		}
	}
}

func TestRankKeepsTiesInOrder(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	table := scoredTable(s, map[string]float64{"a": 1, "b": 2, "c": 1, "d": 2}, "a", "b", "c", "d", "unscored")

	got := Rank(s, table).Keys()
	want := []string{"b", "d", "a", "c", "unscored"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rank mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d", "unscored"}, table.Keys()); diff != "" {
		t.Fatalf("input table was reordered (-want +got):\n%s", diff)
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	table := scoredTable(s, map[string]float64{"a": 3, "b": 2}, "a", "b")
	table.Find("a").Set(s.City, community.Text("Mesa"))

	top := Compile(s, table, 5)
	if diff := cmp.Diff([]string{"a", "b"}, top.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	keys := make([]string, 0, len(top[0].Fields))
	for _, f := range top[0].Fields {
		keys = append(keys, f.Key)
	}
	wantKeys := []string{
		"homebuyer_score", "city", "location", "age_avg", "price_avg", "price_lower", "price_upper",
		"hoa_fee", "preservation_fee", "size", "link",
		"n_golf_courses", "n_clubs", "n_rec_center", "golf_course_qlty", "trails_qlty", "fish", "dog_park",
		"gated", "indoor_pool", "woodwork", "mtn_view", "softball", "isolated_from_city", "competitive_pickleball",
	}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	for _, c := range top {
		for _, f := range c.Fields {
			if f.Value.IsEmpty() {
				t.Fatalf("%s.%s is empty", c.Name, f.Key)
			}
		}
	}
	if v, _ := top[0].Get("city"); v.String() != "Mesa" {
		t.Fatalf("expected city Mesa, got %q", v.String())
	}
	if v, _ := top[1].Get("city"); v.String() != s.NotApplicable {
		t.Fatalf("expected placeholder city, got %q", v.String())
	}
}

func TestCompileDefaultsToThree(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	table := scoredTable(s, map[string]float64{"a": 4, "b": 3, "c": 2, "d": 1}, "a", "b", "c", "d")

	if got := Compile(s, table, 0).Names(); len(got) != DefaultTopN {
		t.Fatalf("expected %d communities, got %v", DefaultTopN, got)
	}
}

func TestTopCommunitiesJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	top := TopCommunities{
		{Name: "Zeta", Fields: []Field{{Key: "homebuyer_score", Value: community.Number(2.5)}, {Key: "city", Value: community.Text("Mesa")}}},
		{Name: "Alpha", Fields: []Field{{Key: "homebuyer_score", Value: community.Number(1)}, {Key: "city", Value: community.Text("N/A")}}},
	}

	raw, err := json.Marshal(top)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"Zeta":{"homebuyer_score":2.5,"city":"Mesa"},"Alpha":{"homebuyer_score":1,"city":"N/A"}}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

func newEngine(t *testing.T) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	return &Engine{Schema: community.DefaultSchema(), Logger: zap.New(core)}, logs
}

func TestEngineRun(t *testing.T) {
	t.Parallel()

	e, logs := newEngine(t)
	outcome, err := e.Run(context.Background(), ct.Needs(e.Schema), ct.Wants(e.Schema), westAndCentral, ct.Preferences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Status != StatusRanked || outcome.Err() != nil {
		t.Fatalf("expected a ranked outcome, got %+v", outcome)
	}
	if outcome.TotalCommunities != len(ct.Order) || outcome.FilteredCommunities != 3 {
		t.Fatalf("unexpected counts: total=%d filtered=%d", outcome.TotalCommunities, outcome.FilteredCommunities)
	}

	wantNames := []string{ct.SunRidge, ct.PaloVerde, ct.CanyonGate}
	if diff := cmp.Diff(wantNames, outcome.Top.Names()); diff != "" {
		t.Fatalf("top communities mismatch (-want +got):\n%s", diff)
	}

	wantScores := []float64{ct.SunRidgeScore, ct.PaloVerdeScore, ct.CanyonGateScore}
	for i, c := range outcome.Top {
		v, _ := c.Get("homebuyer_score")
		got, _ := v.Float()
		if math.Abs(got-wantScores[i]) > 1e-9 {
			t.Fatalf("%s: expected score %v, got %v", c.Name, wantScores[i], got)
		}
	}

	checks := []struct {
		community, key, want string
	}{
		{ct.SunRidge, "size", community.SizeSmall},
		{ct.SunRidge, "n_clubs", "40+ clubs"},
		{ct.SunRidge, "preservation_fee", "0.25%"},
		{ct.PaloVerde, "preservation_fee", "500"},
		{ct.CanyonGate, "size", community.SizeMedium},
		{ct.CanyonGate, "preservation_fee", "N/A"},
		{ct.CanyonGate, "competitive_pickleball", "N/A"},
		{ct.CanyonGate, "location", "West Valley/Central"},
	}
	for _, c := range checks {
		var found bool
		for _, entry := range outcome.Top {
			if entry.Name != c.community {
				continue
			}
			found = true
			if v, _ := entry.Get(c.key); v.String() != c.want {
				t.Fatalf("%s.%s: expected %q, got %q", c.community, c.key, c.want, v.String())
			}
		}
		if !found {
			t.Fatalf("%s missing from the shortlist", c.community)
		}
	}

	if logs.FilterMessage("ranked communities").Len() != 1 {
		t.Fatalf("expected a ranked communities log entry")
	}
}

func TestEngineRunTopN(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	e.TopN = 2
	outcome, err := e.Run(context.Background(), ct.Needs(e.Schema), ct.Wants(e.Schema), westAndCentral, ct.Preferences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{ct.SunRidge, ct.PaloVerde}, outcome.Top.Names()); diff != "" {
		t.Fatalf("top communities mismatch (-want +got):\n%s", diff)
	}
	if outcome.FilteredCommunities != 3 {
		t.Fatalf("expected 3 filtered communities, got %d", outcome.FilteredCommunities)
	}
}

func TestEngineRunDisabledFilters(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	e.DisabledFilters = []string{"age"}
	needs := westAndCentral
	needs.AgeOfHome = "100"

	outcome, err := e.Run(context.Background(), ct.Needs(e.Schema), ct.Wants(e.Schema), needs, ct.Preferences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.FilteredCommunities != 3 {
		t.Fatalf("expected the age filter to be skipped, got %d communities", outcome.FilteredCommunities)
	}
}

func TestEngineRunUnprocessable(t *testing.T) {
	t.Parallel()

	e, logs := newEngine(t)
	needs := westAndCentral
	needs.Location = []string{"Central"}
	needs.SizeOfCommunity = []string{"Large"}

	outcome, err := e.Run(context.Background(), ct.Needs(e.Schema), ct.Wants(e.Schema), needs, ct.Preferences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Status != StatusUnprocessable {
		t.Fatalf("expected an unprocessable outcome, got %s", outcome.Status)
	}
	if outcome.TotalCommunities != len(ct.Order) || outcome.FilteredCommunities != 0 || len(outcome.Top) != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	var unprocessable *UnprocessableError
	if !errors.As(outcome.Err(), &unprocessable) {
		t.Fatalf("expected *UnprocessableError, got %v", outcome.Err())
	}
	if unprocessable.Reason != ReasonAllFiltered {
		t.Fatalf("unexpected reason %q", unprocessable.Reason)
	}
	if logs.FilterMessage(ReasonAllFiltered).Len() != 1 {
		t.Fatalf("expected the reason to be logged")
	}
}

func TestEngineRunInvalidNeeds(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	needs := westAndCentral
	needs.PriceRangeUpper = "lots"

	_, err := e.Run(context.Background(), ct.Needs(e.Schema), ct.Wants(e.Schema), needs, ct.Preferences)
	if !errors.Is(err, filtering.ErrInvalidCriteria) {
		t.Fatalf("expected ErrInvalidCriteria, got %v", err)
	}
}

func TestEngineRunIsIdempotent(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	needsTable, wantsTable := ct.Needs(e.Schema), ct.Wants(e.Schema)

	var outputs []string
	for i := 0; i < 2; i++ {
		outcome, err := e.Run(context.Background(), needsTable, wantsTable, westAndCentral, ct.Preferences)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		raw, err := json.Marshal(NewResponse("buyer@example.com", outcome))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		outputs = append(outputs, string(raw))
	}

	if outputs[0] != outputs[1] {
		t.Fatalf("runs differ:\n%s\n%s", outputs[0], outputs[1])
	}
	if needsTable.HasColumn(e.Schema.Size) || wantsTable.HasColumn(e.Schema.Score) {
		t.Fatalf("input tables were modified")
	}
}

func TestResponseJSON(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	outcome, err := e.Run(context.Background(), ct.Needs(e.Schema), ct.Wants(e.Schema), westAndCentral, ct.Preferences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(NewResponse("buyer@example.com", outcome))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	prefix := `{"email_address":"buyer@example.com","n_communities_total":8,"n_communities_filtered":3,"top_communities":{"Sun Ridge":{"homebuyer_score":`
	if !strings.HasPrefix(string(raw), prefix) {
		t.Fatalf("unexpected response %s", raw)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if strings.Contains(string(raw), "null") {
		t.Fatalf("response contains nulls: %s", raw)
	}

	empty, err := json.Marshal(NewResponse("buyer@example.com", &Outcome{Status: StatusUnprocessable}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(empty), `"top_communities":{}`) {
		t.Fatalf("expected an empty shortlist object, got %s", empty)
	}
}
