package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "resource only",
			key:  Key{Resource: "/users/show"},
			want: "twitter-reader:users/show",
		},
		{
			name: "user id",
			key:  Key{Resource: "/users/show", Params: url.Values{"user_id": []string{"783214"}}},
			want: "twitter-reader:users/show:user_id=783214",
		},
		{
			name: "params sorted by name",
			key: Key{Resource: "/friendships/show", Params: url.Values{
				"target_screen_name": []string{"b"},
				"source_screen_name": []string{"a"},
			}},
			want: "twitter-reader:friendships/show:source_screen_name=a:target_screen_name=b",
		},
		{
			name: "multi values sorted",
			key:  Key{Resource: "/users/lookup", Params: url.Values{"user_id": []string{"3", "1", "2"}}},
			want: "twitter-reader:users/lookup:user_id=1,2,3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_StringDoesNotReorderCallerValues(t *testing.T) {
	params := url.Values{"user_id": []string{"3", "1"}}
	_ = Key{Resource: "/users/lookup", Params: params}.String()

	if params["user_id"][0] != "3" {
		t.Errorf("String() sorted the caller's values: %v", params["user_id"])
	}
}
