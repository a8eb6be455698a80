package models

import "testing"

func TestMergeIcons(t *testing.T) {
	tc := []struct {
		name   string
		custom []Icon
		public []Icon
		want   []string // expected titles, in order
	}{
		{
			name:   "custom first",
			custom: []Icon{{MediaID: "m-moon", Title: "moon"}},
			public: []Icon{{MediaID: "m-star", Title: "star"}, {MediaID: "m-dog", Title: "dog"}},
			want:   []string{"moon", "star", "dog"},
		},
		{
			name:   "collision keeps custom entry",
			custom: []Icon{{MediaID: "m-star", Title: "my star"}},
			public: []Icon{{MediaID: "m-star", Title: "star"}, {MediaID: "m-bus", Title: "bus"}},
			want:   []string{"my star", "bus"},
		},
		{
			name:   "duplicate custom ids collapse",
			custom: []Icon{{MediaID: "m-star", Title: "first"}, {MediaID: "m-star", Title: "second"}},
			public: nil,
			want:   []string{"first"},
		},
		{
			name:   "no custom icons",
			custom: nil,
			public: []Icon{{MediaID: "m-star", Title: "star"}},
			want:   []string{"star"},
		},
		{
			name:   "empty inputs",
			custom: nil,
			public: nil,
			want:   []string{},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeIcons(tt.custom, tt.public)

			if len(merged) != len(tt.want) {
				t.Fatalf("expected %d icons, got %d: %+v", len(tt.want), len(merged), merged)
			}
			for i, title := range tt.want {
				if merged[i].Title != title {
					t.Errorf("expected title %q at position %d, got %q", title, i, merged[i].Title)
				}
			}

			seen := make(map[string]bool)
			for _, ic := range merged {
				if seen[ic.MediaID] {
					t.Errorf("media id %s appears more than once", ic.MediaID)
				}
				seen[ic.MediaID] = true
			}
			for i := range tt.custom {
				if i < len(merged) && !merged[i].Custom {
					t.Errorf("expected icon %s to be flagged custom", merged[i].MediaID)
				}
			}
		})
	}
}
