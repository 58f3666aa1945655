package storage

import (
	"encoding/xml"
	"reflect"
	"strings"
	"testing"
)

func TestCORSPolicyDefaults(t *testing.T) {
	policy := CORSPolicy(nil)
	if len(policy.CORSRules) != 1 {
		t.Fatalf("rules = %d, want 1", len(policy.CORSRules))
	}
	rule := policy.CORSRules[0]
	if !reflect.DeepEqual(rule.AllowedOrigin, DefaultCORSOrigins) {
		t.Errorf("origins = %v", rule.AllowedOrigin)
	}
	if !reflect.DeepEqual(rule.AllowedMethod, []string{"GET", "HEAD"}) {
		t.Errorf("methods = %v", rule.AllowedMethod)
	}
	for _, h := range []string{"Content-Range", "Accept-Ranges", "Content-Length"} {
		found := false
		for _, e := range rule.ExposeHeader {
			found = found || e == h
		}
		if !found {
			t.Errorf("%s not exposed", h)
		}
	}
}

func TestCORSPolicyXML(t *testing.T) {
	data, err := xml.Marshal(CORSPolicy([]string{"https://music.example.com"}))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"<AllowedOrigin>https://music.example.com</AllowedOrigin>",
		"<AllowedMethod>HEAD</AllowedMethod>",
		"<MaxAgeSeconds>3600</MaxAgeSeconds>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("xml %s missing %s", out, want)
		}
	}
}
