package announce

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/queue"
)

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	tags   []string
	err    error
}

func (r *recordingSpeaker) Speak(ctx context.Context, text, languageTag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	r.tags = append(r.tags, languageTag)
	return r.err
}

func (r *recordingSpeaker) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spoken)
}

var announceRooms = []models.Room{
	{RoomCode: "A", RoomName: "Examination A", RoomNames: map[string]string{"th": "ห้องตรวจ A", "en": "Examination A"}, IsActive: true},
	{RoomCode: "B", RoomName: "X-Ray", IsActive: true},
}

func servingTicket(queueNumber, room string, calledAt time.Time) models.Ticket {
	return models.Ticket{
		QRCode:      queueNumber,
		QueueNumber: queueNumber,
		Status:      models.StatusServing,
		RoomID:      room,
		CalledAt:    &calledAt,
	}
}

func snapshotOf(tickets ...models.Ticket) *queue.Snapshot {
	return queue.NewSnapshot(tickets, announceRooms, time.Now())
}

// drain announces everything currently pending.
func drain(s *Sequencer) {
	for s.announceNext(context.Background()) {
	}
}

func TestFirstSnapshotPrimesWithoutSpeaking(t *testing.T) {
	speaker := &recordingSpeaker{}
	seq := NewSequencer(speaker, "en", 0)

	called := time.Now()
	seq.Observe(snapshotOf(servingTicket("A007", "A", called)))
	drain(seq)

	if speaker.count() != 0 {
		t.Fatalf("startup snapshot spoke %d times, want 0", speaker.count())
	}

	// The primed call must not announce again either.
	seq.Observe(snapshotOf(servingTicket("A007", "A", called)))
	drain(seq)
	if speaker.count() != 0 {
		t.Fatalf("primed call re-announced")
	}
}

func TestNewCallAnnouncedOnce(t *testing.T) {
	speaker := &recordingSpeaker{}
	seq := NewSequencer(speaker, "en", 0)
	seq.Observe(snapshotOf())

	called := time.Now()
	snap := snapshotOf(servingTicket("A007", "A", called))
	seq.Observe(snap)
	drain(seq)

	if speaker.count() != 1 {
		t.Fatalf("spoke %d times, want 1", speaker.count())
	}
	if speaker.spoken[0] != "Queue number A007, please proceed to Examination A" {
		t.Fatalf("spoken text = %q", speaker.spoken[0])
	}
	if speaker.tags[0] != "en-US" {
		t.Fatalf("language tag = %q", speaker.tags[0])
	}

	// Unchanged snapshots are idempotent.
	seq.Observe(snap)
	seq.Observe(snap)
	drain(seq)
	if speaker.count() != 1 {
		t.Fatalf("unchanged snapshot re-announced, total %d", speaker.count())
	}
}

func TestRepeatCallAnnouncesAgain(t *testing.T) {
	speaker := &recordingSpeaker{}
	seq := NewSequencer(speaker, "en", 0)
	seq.Observe(snapshotOf())

	called := time.Now()
	seq.Observe(snapshotOf(servingTicket("A007", "A", called)))
	drain(seq)

	// Same ticket, fresh called_at: a repeat call.
	seq.Observe(snapshotOf(servingTicket("A007", "A", called.Add(time.Minute))))
	drain(seq)

	if speaker.count() != 2 {
		t.Fatalf("spoke %d times, want 2", speaker.count())
	}
}

func TestPendingReplacedPerRoom(t *testing.T) {
	speaker := &recordingSpeaker{}
	seq := NewSequencer(speaker, "en", 0)
	seq.Observe(snapshotOf())

	called := time.Now()
	seq.Observe(snapshotOf(servingTicket("A001", "A", called)))
	// A002 supersedes A001 before anything was spoken.
	seq.Observe(snapshotOf(servingTicket("A002", "A", called.Add(time.Second))))
	drain(seq)

	if speaker.count() != 1 {
		t.Fatalf("spoke %d times, want 1 (superseded call dropped)", speaker.count())
	}
	if speaker.spoken[0] != "Queue number A002, please proceed to Examination A" {
		t.Fatalf("spoke stale call: %q", speaker.spoken[0])
	}
}

func TestRoomsAnnouncedIndependently(t *testing.T) {
	speaker := &recordingSpeaker{}
	seq := NewSequencer(speaker, "en", 0)
	seq.Observe(snapshotOf())

	called := time.Now()
	seq.Observe(snapshotOf(
		servingTicket("A001", "A", called),
		servingTicket("B001", "B", called),
	))
	drain(seq)

	if speaker.count() != 2 {
		t.Fatalf("spoke %d times, want one per room", speaker.count())
	}
}

func TestEmptyRoomForgetsLastAnnouncement(t *testing.T) {
	speaker := &recordingSpeaker{}
	seq := NewSequencer(speaker, "en", 0)
	seq.Observe(snapshotOf())

	called := time.Now()
	snap := snapshotOf(servingTicket("A007", "A", called))
	seq.Observe(snap)
	drain(seq)

	// Room empties, then the same call event shows up again.
	seq.Observe(snapshotOf())
	seq.Observe(snap)
	drain(seq)

	if speaker.count() != 2 {
		t.Fatalf("spoke %d times, want 2 (empty room resets bookkeeping)", speaker.count())
	}
}

func TestSpeechFailureAdvances(t *testing.T) {
	speaker := &recordingSpeaker{err: errors.New("synth offline")}
	seq := NewSequencer(speaker, "en", 0)
	seq.Observe(snapshotOf())

	called := time.Now()
	seq.Observe(snapshotOf(
		servingTicket("A001", "A", called),
		servingTicket("B001", "B", called),
	))
	drain(seq)

	if speaker.count() != 2 {
		t.Fatalf("failure stalled the queue: spoke %d times, want 2", speaker.count())
	}
	if len(seq.pending) != 0 {
		t.Fatalf("pending not drained after failures")
	}
}

func TestUnsupportedLanguageFallsBackToDefault(t *testing.T) {
	seq := NewSequencer(&recordingSpeaker{}, "fr", 0)
	if seq.language != DefaultLanguage {
		t.Fatalf("language = %q, want %q", seq.language, DefaultLanguage)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	speaker := &recordingSpeaker{}
	seq := NewSequencer(speaker, "en", 0)
	seq.Observe(snapshotOf())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		seq.Run(ctx)
		close(done)
	}()

	seq.Observe(snapshotOf(servingTicket("A001", "A", time.Now())))

	deadline := time.After(2 * time.Second)
	for speaker.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("announcement never spoken")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
