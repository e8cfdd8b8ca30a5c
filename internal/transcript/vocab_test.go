package transcript

import "testing"

func TestCorrector_EmptyVocabularyIsNoOp(t *testing.T) {
	c := NewCorrector(nil)
	in := "anything at all"
	if got := c.Apply(in); got != in {
		t.Fatalf("Apply = %q, want unchanged %q", got, in)
	}
}

func TestCorrector_SubstitutesPhoneticallySimilarWord(t *testing.T) {
	c := NewCorrector([]string{"prometheus"})
	got := c.Apply("scrape promethius metrics")
	want := "scrape prometheus metrics"
	if got != want {
		t.Fatalf("Apply = %q, want %q", got, want)
	}
}

func TestCorrector_ExactWordLeftAlone(t *testing.T) {
	c := NewCorrector([]string{"grafana"})
	in := "open grafana now"
	if got := c.Apply(in); got != in {
		t.Fatalf("Apply = %q, want unchanged %q", got, in)
	}
}

func TestCorrector_UnrelatedWordLeftAlone(t *testing.T) {
	c := NewCorrector([]string{"prometheus"})
	in := "the table is set"
	if got := c.Apply(in); got != in {
		t.Fatalf("Apply = %q, want unchanged %q", got, in)
	}
}

func TestCorrector_DistanceBoundRespected(t *testing.T) {
	c := NewCorrector([]string{"prometheus"}, WithMaxDistance(1))
	// Two substituted letters: outside the bound of 1.
	in := "check promithius status"
	if got := c.Apply(in); got != in {
		t.Fatalf("Apply = %q, want unchanged %q", got, in)
	}
}

func TestCorrector_PreservesPunctuation(t *testing.T) {
	c := NewCorrector([]string{"grafana"})
	got := c.Apply("open grifana, please")
	want := "open grafana, please"
	if got != want {
		t.Fatalf("Apply = %q, want %q", got, want)
	}
}

func TestCorrector_BlankVocabularyEntriesIgnored(t *testing.T) {
	c := NewCorrector([]string{"", "  ", "grafana"})
	got := c.Apply("grifana dashboard")
	want := "grafana dashboard"
	if got != want {
		t.Fatalf("Apply = %q, want %q", got, want)
	}
}
