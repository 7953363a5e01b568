package core_test

import (
	"testing"
	"time"

	"credit-ledger/internal/core"
)

func charge(t *testing.T, orderID, amount, released string, age time.Duration) core.OutstandingCharge {
	t.Helper()
	return core.OutstandingCharge{
		OrderID:   orderID,
		Amount:    dec(t, amount),
		Released:  dec(t, released),
		CreatedAt: time.Now().Add(-age),
	}
}

func TestPlanAllocation_FIFO(t *testing.T) {
	tests := []struct {
		name    string
		payment string
		charges []core.OutstandingCharge
		want    []core.AllocationStep // order matters
	}{
		{
			name:    "conservation across three charges",
			payment: "120",
			charges: []core.OutstandingCharge{
				charge(t, "O1", "100", "0", 3*time.Hour),
				charge(t, "O2", "50", "0", 2*time.Hour),
				charge(t, "O3", "30", "0", time.Hour),
			},
			want: []core.AllocationStep{
				{OrderID: "O1", Amount: dec(t, "100")},
				{OrderID: "O2", Amount: dec(t, "20")},
			},
		},
		{
			name:    "oldest first with partial second",
			payment: "350",
			charges: []core.OutstandingCharge{
				charge(t, "O1", "300", "0", 2*time.Hour),
				charge(t, "O2", "200", "0", time.Hour),
			},
			want: []core.AllocationStep{
				{OrderID: "O1", Amount: dec(t, "300")},
				{OrderID: "O2", Amount: dec(t, "50")},
			},
		},
		{
			name:    "fully released charge is skipped",
			payment: "75",
			charges: []core.OutstandingCharge{
				charge(t, "O1", "100", "100", 2*time.Hour),
				charge(t, "O2", "80", "0", time.Hour),
			},
			want: []core.AllocationStep{
				{OrderID: "O2", Amount: dec(t, "75")},
			},
		},
		{
			name:    "prior partial release reduces pending",
			payment: "100",
			charges: []core.OutstandingCharge{
				charge(t, "O1", "200", "150", time.Hour),
			},
			want: []core.AllocationStep{
				{OrderID: "O1", Amount: dec(t, "50")},
			},
		},
		{
			name:    "payment exceeding total debt leaves remainder unallocated",
			payment: "500",
			charges: []core.OutstandingCharge{
				charge(t, "O1", "60", "0", 2*time.Hour),
				charge(t, "O2", "20", "0", time.Hour),
			},
			want: []core.AllocationStep{
				{OrderID: "O1", Amount: dec(t, "60")},
				{OrderID: "O2", Amount: dec(t, "20")},
			},
		},
		{
			name:    "no outstanding charges",
			payment: "100",
			charges: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := core.PlanAllocation(dec(t, tt.payment), tt.charges)
			if len(steps) != len(tt.want) {
				t.Fatalf("got %d steps, want %d: %+v", len(steps), len(tt.want), steps)
			}
			for i, step := range steps {
				if step.OrderID != tt.want[i].OrderID {
					t.Errorf("step %d order = %s, want %s", i, step.OrderID, tt.want[i].OrderID)
				}
				if !step.Amount.Equal(tt.want[i].Amount) {
					t.Errorf("step %d amount = %s, want %s", i, step.Amount, tt.want[i].Amount)
				}
			}
		})
	}
}

func TestPlanAllocation_NeverExceedsPending(t *testing.T) {
	charges := []core.OutstandingCharge{
		charge(t, "O1", "100", "40", 3*time.Hour),
		charge(t, "O2", "50", "0", 2*time.Hour),
		charge(t, "O3", "30", "30", time.Hour),
	}
	steps := core.PlanAllocation(dec(t, "1000"), charges)

	released := map[string]string{"O1": "60", "O2": "50"}
	if len(steps) != len(released) {
		t.Fatalf("got %d steps, want %d", len(steps), len(released))
	}
	for _, step := range steps {
		want, ok := released[step.OrderID]
		if !ok {
			t.Errorf("unexpected release against %s", step.OrderID)
			continue
		}
		if !step.Amount.Equal(dec(t, want)) {
			t.Errorf("release for %s = %s, want %s", step.OrderID, step.Amount, want)
		}
	}
}

func TestOutstandingCharge_Pending(t *testing.T) {
	c := charge(t, "O1", "200", "50", time.Hour)
	if got := c.Pending(); !got.Equal(dec(t, "150")) {
		t.Errorf("pending = %s, want 150", got)
	}

	over := charge(t, "O2", "100", "120", time.Hour)
	if got := over.Pending(); !got.IsZero() {
		t.Errorf("over-released pending = %s, want 0", got)
	}
}
