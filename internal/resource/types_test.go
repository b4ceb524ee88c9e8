package resource

import "testing"

func TestContainsContainedByInverse(t *testing.T) {
	for _, t1 := range All {
		for _, t2 := range All {
			got := Contains(t1, t2)
			want := false
			for _, c := range containedByMap[t2] {
				if c == t1 {
					want = true
				}
			}
			if got != want {
				t.Errorf("Contains(%s,%s)=%v, but containedByMap inverse says %v", t1, t2, got, want)
			}
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Type
		wantErr bool
	}{
		{"valid page", "Page", Page, false},
		{"valid organization", "Organization", Organization, false},
		{"unknown", "Bogus", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType(%q) err=%v, wantErr=%v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseType(%q)=%v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateContents(t *testing.T) {
	if !ValidateContents(Collection, Page) {
		t.Error("Collection should contain Page")
	}
	if ValidateContents(Page, Collection) {
		t.Error("Page should not contain Collection")
	}
	if !ValidateContents(Picture, Person) {
		t.Error("Picture should contain Person")
	}
	if ValidateContents(Audio, Audio) {
		t.Error("Audio should not contain itself")
	}
}

func TestContainersOf(t *testing.T) {
	if got := ContainersOf(Collection); got != nil {
		t.Errorf("ContainersOf(Collection)=%v, want nil", got)
	}
	got := ContainersOf(Person)
	want := map[Type]bool{Page: true, Picture: true, Video: true, Audio: true}
	if len(got) != len(want) {
		t.Fatalf("ContainersOf(Person)=%v, want 4 entries", got)
	}
	for _, t2 := range got {
		if !want[t2] {
			t.Errorf("unexpected container %v", t2)
		}
	}
}
