package repository

import "testing"

func TestListOptionsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{"zero value gets defaults", ListOptions{}, ListOptions{Limit: DefaultLimit}},
		{"limit capped", ListOptions{Limit: 1000, Offset: 5}, ListOptions{Limit: MaxLimit, Offset: 5}},
		{"negative offset", ListOptions{Limit: 10, Offset: -3}, ListOptions{Limit: 10}},
		{"valid kept", ListOptions{Limit: 7, Offset: 14}, ListOptions{Limit: 7, Offset: 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
