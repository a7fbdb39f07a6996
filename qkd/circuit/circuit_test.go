package circuit

import (
	"strings"
	"testing"
)

func TestBuilderAppendsInOrder(t *testing.T) {
	qc := New(2, 2)
	qc.H(0)
	qc.CX(0, 1)
	qc.Barrier()
	qc.Measure(0, 0)
	qc.Measure(1, 1)

	want := []Kind{H, CX, Barrier, Measure, Measure}
	if len(qc.Gates) != len(want) {
		t.Fatalf("got %d gates, want %d", len(qc.Gates), len(want))
	}
	for i, k := range want {
		if qc.Gates[i].Kind != k {
			t.Errorf("gate %d: got %s, want %s", i, qc.Gates[i].Kind, k)
		}
	}
}

func TestValidate(t *testing.T) {
	tcs := []struct {
		name    string
		build   func() *Circuit
		wantErr string
	}{
		{
			name: "valid",
			build: func() *Circuit {
				qc := New(4, 4)
				qc.H(0)
				qc.CX(0, 3)
				qc.Measure(3, 0)
				return qc
			},
		}, {
			name: "qubit out of range",
			build: func() *Circuit {
				qc := New(1, 1)
				qc.X(1)
				return qc
			},
			wantErr: "out of range",
		}, {
			name: "cx target out of range",
			build: func() *Circuit {
				qc := New(2, 2)
				qc.CX(0, 2)
				return qc
			},
			wantErr: "out of range",
		}, {
			name: "cx self-loop",
			build: func() *Circuit {
				qc := New(2, 2)
				qc.CX(1, 1)
				return qc
			},
			wantErr: "control and target",
		}, {
			name: "clbit out of range",
			build: func() *Circuit {
				qc := New(1, 1)
				qc.Measure(0, 1)
				return qc
			},
			wantErr: "out of range",
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build().Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}
