package calmbox

import (
	"context"
	"fmt"
	"time"
)

// Turn processes one utterance through the full pipeline: routing, protocol
// short-circuit, retrieval, generation, safety gate. Events carry hardware
// signals like "imu_strong_shake" into the protocol triggers.
func (c *Client) Turn(ctx context.Context, text string, events []string) (_ TurnResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("turn", start, err) }()

	turn, err := c.sessionSvc.Handle(ctx, text, events)
	if err != nil {
		return TurnResult{}, fmt.Errorf("turn: %w", err)
	}

	return TurnResult{
		Reply:    turn.Reply,
		Outcome:  turn.Outcome,
		Protocol: turn.Protocol,
		UsedIDs:  turn.UsedIDs,
	}, nil
}
