package adapters

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"indexerfleet/internal/families/tournament"
)

func TestTournamentFetcherFetchBattles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"battles": [{
			"tournamentId": "t-1",
			"format": "3v3",
			"restrictions": {"levelMin": 1, "levelMax": 10, "partySize": 3},
			"rewards": "crystal",
			"hostPlayer": "0xhost",
			"opponentPlayer": "0xopp",
			"winnerPlayer": "0xhost",
			"hostHeroes": [{"heroId": "h1", "level": 5, "stats": [1,2,3,4,5,6,7,8], "abilityIds": [1,2,3,4]}],
			"opponentHeroes": []
		}]}}`))
	}))
	defer srv.Close()

	f := NewTournamentFetcher(srv.URL)
	battles, err := f.FetchBattles(t.Context(), tournament.WorkItem{BatchSize: 50, Skip: 0})
	if err != nil {
		t.Fatalf("FetchBattles: %v", err)
	}
	if len(battles) != 1 {
		t.Fatalf("len(battles) = %d, want 1", len(battles))
	}
	b := battles[0]
	if b.TournamentID != "t-1" || b.Format != "3v3" || b.WinnerPlayer != "0xhost" {
		t.Errorf("unexpected battle: %+v", b)
	}
	if b.Restrictions.PartySize != 3 {
		t.Errorf("partySize = %d, want 3", b.Restrictions.PartySize)
	}
	if len(b.HostHeroes) != 1 || b.HostHeroes[0].HeroID != "h1" {
		t.Errorf("hostHeroes = %+v", b.HostHeroes)
	}
}

func TestTournamentFetcherFetchBattlesGraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors": [{"message": "boom"}]}`))
	}))
	defer srv.Close()

	f := NewTournamentFetcher(srv.URL)
	if _, err := f.FetchBattles(t.Context(), tournament.WorkItem{BatchSize: 50, Skip: 0}); err == nil {
		t.Fatal("expected error from graphql errors array")
	}
}
