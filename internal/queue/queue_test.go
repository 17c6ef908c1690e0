package queue

import (
	"testing"
	"time"

	"gridflow/conf"
	"gridflow/internal/model/entity"
)

func testQueue() *WaitingQueue {
	return New(nil, conf.RiskConfig{
		LossWeight:        10,
		ContinuationBonus: 50,
	})
}

func TestPriorityScore(t *testing.T) {
	q := testQueue()

	// 无亏损无续仓，零分
	if got := q.PriorityScore(0, false); got != 0 {
		t.Errorf("score(0, false) = %v, want 0", got)
	}

	// 浮盈的组不吃亏损分
	if got := q.PriorityScore(3.5, false); got != 0 {
		t.Errorf("score(3.5, false) = %v, want 0", got)
	}

	// 每1%亏损计LossWeight分
	if got := q.PriorityScore(-4, false); got != 40 {
		t.Errorf("score(-4, false) = %v, want 40", got)
	}

	// 续仓加ContinuationBonus
	if got := q.PriorityScore(-4, true); got != 90 {
		t.Errorf("score(-4, true) = %v, want 90", got)
	}
	if got := q.PriorityScore(0, true); got != 50 {
		t.Errorf("score(0, true) = %v, want 50", got)
	}
}

func TestPriorityScore_DeeperLossRanksHigher(t *testing.T) {
	q := testQueue()

	shallow := q.PriorityScore(-1, false)
	deep := q.PriorityScore(-8, false)
	if deep <= shallow {
		t.Errorf("deeper loss should outrank: deep=%v shallow=%v", deep, shallow)
	}

	// 续仓加分可以反超更深的纯新开仓亏损
	continuation := q.PriorityScore(-1, true)
	if continuation <= q.PriorityScore(-5, false) {
		t.Errorf("continuation bonus too weak: %v", continuation)
	}
}

func queuedEntry(score float64, replacements int, continuation bool, created time.Time) entity.QueueEntry {
	return entity.QueueEntry{
		PriorityScore:         score,
		ReplacementCount:      replacements,
		IsPyramidContinuation: continuation,
		Status:                entity.QueueQueued,
		CreatedAt:             created,
	}
}

func TestHead_ReplacementBreaksScoreTie(t *testing.T) {
	base := time.Now()
	// 分数[10,20,20]，替换次数[0,0,5]：同分时替换多的先晋升
	entries := []entity.QueueEntry{
		queuedEntry(10, 0, false, base),
		queuedEntry(20, 0, false, base.Add(time.Second)),
		queuedEntry(20, 5, false, base.Add(2*time.Second)),
	}
	best := head(entries)
	if best == nil || best.PriorityScore != 20 || best.ReplacementCount != 5 {
		t.Fatalf("head = %+v, want score 20 with 5 replacements", best)
	}
}

func TestHead_ContinuationOutranksScore(t *testing.T) {
	base := time.Now()
	entries := []entity.QueueEntry{
		queuedEntry(90, 3, false, base),
		queuedEntry(10, 0, true, base.Add(time.Second)),
	}
	best := head(entries)
	if best == nil || !best.IsPyramidContinuation {
		t.Fatalf("head = %+v, want the pyramid continuation entry", best)
	}
}

func TestHead_OldestWinsFullTie(t *testing.T) {
	base := time.Now()
	entries := []entity.QueueEntry{
		queuedEntry(20, 1, false, base.Add(time.Minute)),
		queuedEntry(20, 1, false, base),
	}
	best := head(entries)
	if best == nil || !best.CreatedAt.Equal(base) {
		t.Fatalf("head = %+v, want the oldest entry", best)
	}
}

func TestHead_Empty(t *testing.T) {
	if head(nil) != nil {
		t.Error("empty queue should have no head")
	}
}
