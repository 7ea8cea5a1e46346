package consensus

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

func fullResult(uid string) Result {
	return Result{
		TaskID:       "t-" + uid,
		MinerUID:     uid,
		Latency:      800 * time.Millisecond,
		ResultURL:    "http://results.local/t-" + uid,
		ModelVersion: "v1.2",
		ReportedSecs: 1,
	}
}

func approx(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s: got %v, want %v", msg, got, want)
	}
}

func TestScoreFullReplyDeterministic(t *testing.T) {
	s := NewScorer("average", true)
	rng := rand.New(rand.NewPCG(1, 1))

	// base 0.5 + fast 0.2 + url 0.15 + version 0.05
	approx(t, s.scoreResult(fullResult("0x01"), rng), 0.9, "full reply score")
}

func TestScoreBonusesAreIndependent(t *testing.T) {
	s := NewScorer("average", true)
	rng := rand.New(rand.NewPCG(1, 1))

	bare := Result{TaskID: "t", MinerUID: "m", ReportedSecs: 12}
	approx(t, s.scoreResult(bare, rng), 0.5, "bare slow reply")

	moderate := Result{TaskID: "t", MinerUID: "m", ReportedSecs: 7}
	approx(t, s.scoreResult(moderate, rng), 0.6, "moderate latency reply")

	withURL := Result{TaskID: "t", MinerUID: "m", ReportedSecs: 12, ResultURL: "http://r.local/t"}
	approx(t, s.scoreResult(withURL, rng), 0.65, "url reply")

	withVersion := Result{TaskID: "t", MinerUID: "m", ReportedSecs: 12, ModelVersion: "v2"}
	approx(t, s.scoreResult(withVersion, rng), 0.55, "version reply")
}

func TestScoreFallsBackToTransportLatency(t *testing.T) {
	s := NewScorer("average", true)
	rng := rand.New(rand.NewPCG(1, 1))

	r := Result{TaskID: "t", MinerUID: "m", Latency: 2 * time.Second}
	approx(t, s.scoreResult(r, rng), 0.7, "transport latency bonus")
}

func TestScoresAlwaysWithinBand(t *testing.T) {
	s := NewScorer("average", false)

	outcome := RoundOutcome{Round: 1}
	for i := 0; i < 200; i++ {
		outcome.Results = append(outcome.Results, fullResult("0x01"))
	}
	outcome.Errors = append(outcome.Errors, TaskError{TaskID: "t-e", MinerUID: "0x02", Kind: ErrTimeout})
	s.ScoreRound(9, outcome)

	for _, uid := range []string{"0x01", "0x02"} {
		for _, score := range s.History(uid) {
			if score < ScoreFloor || score > ScoreCeil {
				t.Fatalf("score %v outside [%v, %v]", score, ScoreFloor, ScoreCeil)
			}
		}
	}
}

func TestFailuresScoreFloor(t *testing.T) {
	s := NewScorer("average", true)
	outcome := RoundOutcome{
		Round: 1,
		Errors: []TaskError{
			{TaskID: "t1", MinerUID: "0x01", Kind: ErrDispatch},
			{TaskID: "t2", MinerUID: "0x02", Kind: ErrTimeout},
			{TaskID: "t3", MinerUID: "0x03", Kind: ErrMalformed},
		},
	}
	s.ScoreRound(1, outcome)

	for _, uid := range []string{"0x01", "0x02", "0x03"} {
		hist := s.History(uid)
		if len(hist) != 1 {
			t.Fatalf("miner %s history %v, want one floor entry", uid, hist)
		}
		approx(t, hist[0], ScoreFloor, "failure score")
	}
}

func TestFinalScoresSingleElementIdentity(t *testing.T) {
	for _, method := range []string{"average", "median", "max"} {
		s := NewScorer(method, true)
		s.Append("0x01", 0.62)
		final := s.FinalScores()
		if final["0x01"] != 0.62 {
			t.Fatalf("%s single-element aggregate: got %v, want 0.62", method, final["0x01"])
		}
	}
}

func TestFinalScoresAverageOfRepeatedValue(t *testing.T) {
	s := NewScorer("average", true)
	for i := 0; i < 7; i++ {
		s.Append("0x01", 0.75)
	}
	if got := s.FinalScores()["0x01"]; got != 0.75 {
		t.Fatalf("average of repeated value: got %v, want exactly 0.75", got)
	}
}

func TestFinalScoresOmitEmptyHistories(t *testing.T) {
	s := NewScorer("average", true)
	s.Append("0x01", 0.5)
	final := s.FinalScores()

	if _, ok := final["0x02"]; ok {
		t.Fatalf("never-selected miner must not appear in output")
	}
	if len(final) != 1 {
		t.Fatalf("unexpected output size %d", len(final))
	}
}

func TestFinalScoreDependsOnOwnHistoryOnly(t *testing.T) {
	solo := NewScorer("average", true)
	solo.Append("0x01", 0.9)
	solo.Append("0x01", 0.5)
	want := solo.FinalScores()["0x01"]

	crowded := NewScorer("average", true)
	crowded.Append("0x01", 0.9)
	crowded.Append("0x01", 0.5)
	crowded.Append("0x02", 0.05)
	crowded.Append("0x03", 0.95)
	if got := crowded.FinalScores()["0x01"]; got != want {
		t.Fatalf("final score leaked across miners: %v vs %v", got, want)
	}
}

func TestHistorySoftCapDropsOldest(t *testing.T) {
	s := NewScorer("max", true)
	s.historyCap = 3

	s.Append("0x01", 0.95)
	s.Append("0x01", 0.3)
	s.Append("0x01", 0.3)
	s.Append("0x01", 0.3)

	hist := s.History("0x01")
	if len(hist) != 3 {
		t.Fatalf("history length %d, want 3", len(hist))
	}
	approx(t, s.FinalScores()["0x01"], 0.3, "oldest entry should have been dropped")
}

func TestDeterministicRoundsReproduce(t *testing.T) {
	score := func() float64 {
		s := NewScorer("average", true)
		outcome := RoundOutcome{Round: 3, Results: []Result{fullResult("0x01")}}
		s.ScoreRound(11, outcome)
		return s.History("0x01")[0]
	}
	if a, b := score(), score(); a != b {
		t.Fatalf("deterministic scoring differed: %v vs %v", a, b)
	}
}
