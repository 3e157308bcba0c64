package flow

import "testing"

func TestBinding_TypesChanged(t *testing.T) {
	t.Parallel()

	varchar := Bind(0xFD, false, []byte("a"))
	varcharNull := BindNull(0xFD)
	intSlot := Bind(0x03, false, []byte{1, 0, 0, 0})

	tests := []struct {
		name string
		prev Binding
		next Binding
		want bool
	}{
		{
			name: "identical",
			prev: Binding{Slots: []Slot{varchar}},
			next: Binding{Slots: []Slot{varchar}},
			want: false,
		},
		{
			name: "type byte changed",
			prev: Binding{Slots: []Slot{varchar}},
			next: Binding{Slots: []Slot{intSlot}},
			want: true,
		},
		{
			name: "slot count changed",
			prev: Binding{Slots: []Slot{varchar}},
			next: Binding{Slots: []Slot{varchar, intSlot}},
			want: true,
		},
		{
			name: "value to null, same declared type",
			prev: Binding{Slots: []Slot{varchar}},
			next: Binding{Slots: []Slot{varcharNull}},
			want: true,
		},
		{
			name: "null to value, same declared type",
			prev: Binding{Slots: []Slot{varcharNull}},
			next: Binding{Slots: []Slot{varchar}},
			want: true,
		},
		{
			name: "null to null",
			prev: Binding{Slots: []Slot{varcharNull}},
			next: Binding{Slots: []Slot{varcharNull}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.next.typesChanged(tt.prev.typeDescs())
			if got != tt.want {
				t.Errorf("typesChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}
