package calmbox

import (
	"context"
	"errors"
	"testing"

	"github.com/calmbox/calmbox/internal/domain"
	retrievaluc "github.com/calmbox/calmbox/internal/usecase/retrieval"
	sessionuc "github.com/calmbox/calmbox/internal/usecase/session"
)

func testClient(session sessionUseCase, retrieval retrievalUseCase) *Client {
	return &Client{
		sessionSvc:   session,
		retrievalSvc: retrieval,
	}
}

func TestTurn(t *testing.T) {
	var gotText string
	var gotEvents []string
	c := testClient(&mockSessionUC{
		handleFn: func(_ context.Context, userText string, events []string) (sessionuc.Turn, error) {
			gotText = userText
			gotEvents = events
			return sessionuc.Turn{
				Reply:   "深呼吸，余震会过去。",
				Outcome: sessionuc.OutcomeGenerated,
				UsedIDs: []string{"c_001"},
			}, nil
		},
	}, nil)

	turn, err := c.Turn(context.Background(), "又震了", []string{"imu_strong_shake"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotText != "又震了" {
		t.Errorf("text = %q", gotText)
	}
	if len(gotEvents) != 1 || gotEvents[0] != "imu_strong_shake" {
		t.Errorf("events = %v", gotEvents)
	}
	if turn.Outcome != OutcomeGenerated {
		t.Errorf("outcome = %q, want %q", turn.Outcome, OutcomeGenerated)
	}
	if len(turn.UsedIDs) != 1 || turn.UsedIDs[0] != "c_001" {
		t.Errorf("used ids = %v", turn.UsedIDs)
	}
}

func TestTurn_EmptyError(t *testing.T) {
	c := testClient(&mockSessionUC{
		handleFn: func(_ context.Context, _ string, _ []string) (sessionuc.Turn, error) {
			return sessionuc.Turn{}, domain.ErrEmptyTurn
		},
	}, nil)

	_, err := c.Turn(context.Background(), "  ", nil)
	if !errors.Is(err, ErrEmptyTurn) {
		t.Fatalf("expected ErrEmptyTurn, got %v", err)
	}
}

func TestRetrieve(t *testing.T) {
	c := testClient(nil, &mockRetrievalUC{
		autoSearchFn: func(_ context.Context, query string, topK, autoTopTags int) ([]domain.SearchResult, error) {
			if query != "被困了" {
				t.Errorf("query = %q", query)
			}
			if topK != 3 {
				t.Errorf("topK = %d, want 3", topK)
			}
			return []domain.SearchResult{
				{
					Chunk:         domain.Chunk{ChunkID: "c_010", Text: "保存体力", GroupID: "g1"},
					Distance:      0.4,
					FinalDistance: 0.38,
				},
			}, nil
		},
	})

	results, err := c.Retrieve(context.Background(), "被困了", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results len = %d, want 1", len(results))
	}
	if results[0].ChunkID != "c_010" {
		t.Errorf("chunk id = %q", results[0].ChunkID)
	}
	if results[0].FinalDistance >= results[0].Distance {
		t.Errorf("final distance %g should improve on raw %g", results[0].FinalDistance, results[0].Distance)
	}
}

func TestChunksByIDs(t *testing.T) {
	c := testClient(nil, &mockRetrievalUC{
		byIDsFn: func(_ context.Context, ids []string) ([]domain.Chunk, error) {
			if len(ids) != 2 {
				t.Errorf("ids = %v", ids)
			}
			return []domain.Chunk{{ChunkID: "c_001", QualityScore: 4.5, Tags: []string{"scn_aftershock"}}}, nil
		},
	})

	chunks, err := c.ChunksByIDs(context.Background(), []string{"c_001", "c_404"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunks len = %d, want 1", len(chunks))
	}
	if chunks[0].QualityScore != 4.5 {
		t.Errorf("quality = %g", chunks[0].QualityScore)
	}
}

func TestChunksByIDs_Error(t *testing.T) {
	c := testClient(nil, &mockRetrievalUC{
		byIDsFn: func(_ context.Context, _ []string) ([]domain.Chunk, error) {
			return nil, errors.New("store down")
		},
	})

	if _, err := c.ChunksByIDs(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
}

// Compile-time check: the real services satisfy the SDK interfaces.
var (
	_ sessionUseCase   = (*sessionuc.Service)(nil)
	_ retrievalUseCase = (*retrievaluc.Service)(nil)
)
