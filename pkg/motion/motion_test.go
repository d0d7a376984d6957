package motion

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateFromDB(t *testing.T) {
	t.Run("clamped to unit range", func(t *testing.T) {
		for _, db := range []float64{math.Inf(-1), -100, 0, 5, 20, 40, 100, math.Inf(1)} {
			rate := RateFromDB(db)
			if rate < 0 || rate > 1 {
				t.Errorf("RateFromDB(%v) = %v, outside [0,1]", db, rate)
			}
		}
	})

	t.Run("window endpoints", func(t *testing.T) {
		if got := RateFromDB(RateDBMin); got != 0 {
			t.Errorf("rate at window floor = %v, want 0", got)
		}
		if got := RateFromDB(RateDBMax); got != 1 {
			t.Errorf("rate at window ceiling = %v, want 1", got)
		}
		mid := (RateDBMin + RateDBMax) / 2
		if got := RateFromDB(mid); math.Abs(got-0.5) > 1e-9 {
			t.Errorf("rate at midpoint = %v, want 0.5", got)
		}
	})
}

func TestTiltFromRate(t *testing.T) {
	if got := TiltFromRate(0); got != TiltMax {
		t.Errorf("tilt at rate 0 = %v, want %v (idle pose)", got, TiltMax)
	}
	if got := TiltFromRate(1); math.Abs(got-TiltMin) > 1e-9 {
		t.Errorf("tilt at rate 1 = %v, want %v", got, TiltMin)
	}
}

func TestFromLabel(t *testing.T) {
	cases := map[string]string{
		"肯定する":   MotionAgree,
		"否定する":   MotionSwing,
		"おじぎ":    MotionBow,
		"喜ぶ":     MotionHappy,
		"笑う":     MotionLough,
		"落ち込む":   MotionDepressed,
		"うんざりする": MotionAmazed,
		"眠る":     MotionSleep,
		"ぼんやりする": MotionLookup,
	}
	for label, want := range cases {
		got, ok := FromLabel(label)
		if !ok || got != want {
			t.Errorf("FromLabel(%q) = %q, %v; want %q", label, got, ok, want)
		}
	}

	if _, ok := FromLabel("走る"); ok {
		t.Error("unknown label resolved")
	}

	if len(Labels()) == 0 {
		t.Error("no labels for prompt construction")
	}
}

func TestSyncLoop(t *testing.T) {
	t.Run("dispatches on rate change", func(t *testing.T) {
		mock := NewMockDispatcher()
		loop := NewSyncLoop(mock, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go loop.Run(ctx)

		loop.Enable()
		loop.UpdateDB(40) // rate 1.0

		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) && len(mock.Poses()) == 0 {
			time.Sleep(10 * time.Millisecond)
		}

		poses := mock.Poses()
		if len(poses) == 0 {
			t.Fatal("no pose dispatched")
		}
		if math.Abs(poses[0]-TiltMin) > 1e-9 {
			t.Errorf("pose = %v, want full tilt %v", poses[0], TiltMin)
		}
		if mock.Clears() == 0 {
			t.Error("pose sent without clearing queued motion")
		}
	})

	t.Run("rate decays after reset interval", func(t *testing.T) {
		loop := NewSyncLoop(NewMockDispatcher(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go loop.Run(ctx)

		loop.Enable()
		loop.UpdateDB(40)
		if loop.Rate() != 1 {
			t.Fatalf("rate = %v, want 1", loop.Rate())
		}

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && loop.Rate() != 0 {
			time.Sleep(20 * time.Millisecond)
		}
		if loop.Rate() != 0 {
			t.Error("rate did not decay to 0 with no updates")
		}
	})

	t.Run("disabled loop does not dispatch", func(t *testing.T) {
		mock := NewMockDispatcher()
		loop := NewSyncLoop(mock, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go loop.Run(ctx)

		loop.UpdateDB(40)
		time.Sleep(300 * time.Millisecond)
		if n := len(mock.Poses()); n != 0 {
			t.Errorf("%d poses dispatched while disabled", n)
		}
	})

	t.Run("reset pose returns to idle", func(t *testing.T) {
		mock := NewMockDispatcher()
		loop := NewSyncLoop(mock, nil)
		loop.ResetPose(context.Background())

		poses := mock.Poses()
		if len(poses) != 1 || poses[0] != TiltMax {
			t.Errorf("reset poses = %v, want [%v]", poses, TiltMax)
		}
	})
}

func TestClient(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, call{path: r.URL.Path, body: body})
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), nil)
	ctx := context.Background()

	if err := c.SetMotion(ctx, MotionNod, 3, true, false); err != nil {
		t.Fatalf("SetMotion: %v", err)
	}
	if err := c.SetPos(ctx, 0.2, 3); err != nil {
		t.Fatalf("SetPos: %v", err)
	}
	if err := c.ClearMotion(ctx, 3); err != nil {
		t.Fatalf("ClearMotion: %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}
	if calls[0].path != "/api/motion/set" || calls[0].body["name"] != "nod" {
		t.Errorf("SetMotion call = %+v", calls[0])
	}
	if calls[1].path != "/api/motion/set_pos" || calls[1].body["tilt"].(float64) != 0.2 {
		t.Errorf("SetPos call = %+v", calls[1])
	}
	if calls[2].path != "/api/motion/clear" {
		t.Errorf("ClearMotion call = %+v", calls[2])
	}
}
