package endpoint

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"localhost", ProxyBase},
		{"127.0.0.1", ProxyBase},
		{"LOCALHOST", ProxyBase},
		{" localhost ", ProxyBase},
		{"localhost:5173", ProxyBase},
		{"127.0.0.1:8080", ProxyBase},
		{"", ServiceBase},
		{"ticksafe.example.org", ServiceBase},
		{"192.168.1.20", ServiceBase},
		{"127.0.0.2", ServiceBase},
		{"localhost.example.org", ServiceBase},
		{"::1", ServiceBase},
	}
	for _, c := range cases {
		if got := Resolve(c.host); got != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.host, got, c.want)
		}
	}
}

func TestIsRelative(t *testing.T) {
	if !IsRelative(ProxyBase) {
		t.Errorf("IsRelative(%q) = false, want true", ProxyBase)
	}
	if IsRelative(ServiceBase) {
		t.Errorf("IsRelative(%q) = true, want false", ServiceBase)
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"/api", DetectTickPath, "/api/detect-tick"},
		{"/api/", DetectTickPath, "/api/detect-tick"},
		{ServiceBase, HealthPath, "http://localhost:8000/health"},
		{"http://127.0.0.1:8080/api", "detect-tick", "http://127.0.0.1:8080/api/detect-tick"},
		{"http://x", "", "http://x"},
	}
	for _, c := range cases {
		if got := Join(c.base, c.path); got != c.want {
			t.Errorf("Join(%q, %q) = %q, want %q", c.base, c.path, got, c.want)
		}
	}
}
