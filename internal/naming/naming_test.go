package naming

import (
	"strings"
	"testing"
)

const testID = "5f1c9a2e-7b34-4d56-8e90-abcdef012345"

func TestNamesAreDeterministic(t *testing.T) {
	if DeploymentNamespace(testID) != DeploymentNamespace(testID) {
		t.Fatalf("namespace derivation not stable")
	}
	if got, want := DeploymentNamespace(testID), "container-engine-deploy-5f1c9a2e7b34"; got != want {
		t.Fatalf("namespace = %q, want %q", got, want)
	}
	if got, want := DeploymentName(testID), "app-5f1c9a2e"; got != want {
		t.Fatalf("deployment name = %q, want %q", got, want)
	}
	if got, want := ServiceName(testID), "svc-5f1c9a2e"; got != want {
		t.Fatalf("service name = %q, want %q", got, want)
	}
	if got, want := IngressName(testID), "ing-5f1c9a2e"; got != want {
		t.Fatalf("ingress name = %q, want %q", got, want)
	}
	if got, want := CustomIngressName(testID), "custom-ing-5f1c9a2e"; got != want {
		t.Fatalf("custom ingress name = %q, want %q", got, want)
	}
}

func TestNamespacesDifferAcrossDeployments(t *testing.T) {
	a := DeploymentNamespace("11111111-2222-3333-4444-555555555555")
	b := DeploymentNamespace("66666666-7777-8888-9999-aaaaaaaaaaaa")
	if a == b {
		t.Fatalf("distinct deployments mapped to the same namespace: %s", a)
	}
}

func TestSanitizeAppName(t *testing.T) {
	cases := map[string]string{
		"My App":      "my-app",
		"web_api":     "web-api",
		"Demo.v2":     "demo.v2",
		"hello!world": "hello-world",
	}
	for in, want := range cases {
		if got := SanitizeAppName(in); got != want {
			t.Errorf("SanitizeAppName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHostname(t *testing.T) {
	host := Hostname("My App", testID, "192-168-1-1.nip.io")
	if host != "my-app-5f1c9a2e.192-168-1-1.nip.io" {
		t.Fatalf("unexpected hostname: %s", host)
	}
	if strings.ContainsAny(host, " _") {
		t.Fatalf("hostname contains invalid characters: %s", host)
	}
}
