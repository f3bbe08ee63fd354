package kube

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/container-engine/container-engine/internal/naming"
)

const testDeploymentID = "5f1c9a2e-7b34-4d56-8e90-abcdef012345"

func newTestClient() *Client {
	return &Client{Clientset: fake.NewSimpleClientset()}
}

func testSpec() *WorkloadSpec {
	return &WorkloadSpec{
		DeploymentID: testDeploymentID,
		UserID:       "user-1",
		AppName:      "My App",
		Image:        "nginx:1.27",
		Port:         8080,
		EnvVars:      map[string]string{"PORT": "8080"},
		Replicas:     2,
	}
}

func TestCreateNamespaceIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	ns := naming.DeploymentNamespace(testDeploymentID)
	if err := c.CreateNamespace(ctx, ns, map[string]string{LabelManagedBy: ManagedByValue}); err != nil {
		t.Fatalf("CreateNamespace() error = %v", err)
	}
	if err := c.CreateNamespace(ctx, ns, nil); err != nil {
		t.Fatalf("CreateNamespace() second call error = %v", err)
	}
	got, err := c.Clientset.CoreV1().Namespaces().Get(ctx, ns, metav1.GetOptions{})
	if err != nil {
		t.Fatalf("namespace not created: %v", err)
	}
	if got.Labels[LabelManagedBy] != ManagedByValue {
		t.Fatalf("namespace labels = %v", got.Labels)
	}
}

func TestCreateWorkloadRendersSpec(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	spec := testSpec()
	spec.HealthCheck = nil
	if err := c.CreateWorkload(ctx, "ns", spec); err != nil {
		t.Fatalf("CreateWorkload() error = %v", err)
	}
	dep, err := c.Clientset.AppsV1().Deployments("ns").Get(ctx, naming.DeploymentName(testDeploymentID), metav1.GetOptions{})
	if err != nil {
		t.Fatalf("deployment not created: %v", err)
	}
	if *dep.Spec.Replicas != 2 {
		t.Fatalf("replicas = %d, want 2", *dep.Spec.Replicas)
	}
	ctr := dep.Spec.Template.Spec.Containers[0]
	if ctr.Image != "nginx:1.27" {
		t.Fatalf("image = %s", ctr.Image)
	}
	if len(ctr.Env) != 1 || ctr.Env[0].Name != "PORT" {
		t.Fatalf("env = %v", ctr.Env)
	}
	if dep.Labels[LabelDeploymentID] != testDeploymentID {
		t.Fatalf("labels = %v", dep.Labels)
	}
}

func TestScaleWorkloadPreservesSpec(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	spec := testSpec()
	if err := c.CreateWorkload(ctx, "ns", spec); err != nil {
		t.Fatalf("CreateWorkload() error = %v", err)
	}
	name := naming.DeploymentName(testDeploymentID)
	if err := c.ScaleWorkload(ctx, "ns", name, 5); err != nil {
		t.Fatalf("ScaleWorkload() error = %v", err)
	}
	dep, err := c.Clientset.AppsV1().Deployments("ns").Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		t.Fatalf("get deployment: %v", err)
	}
	if *dep.Spec.Replicas != 5 {
		t.Fatalf("replicas = %d, want 5", *dep.Spec.Replicas)
	}
	if dep.Spec.Template.Spec.Containers[0].Image != "nginx:1.27" {
		t.Fatalf("image changed during scale: %s", dep.Spec.Template.Spec.Containers[0].Image)
	}
}

func TestScaleWorkloadMissingDeployment(t *testing.T) {
	c := newTestClient()
	if err := c.ScaleWorkload(context.Background(), "ns", "app-missing", 3); err == nil {
		t.Fatalf("expected error for missing deployment")
	}
}

func TestRestartWorkloadStampsAnnotation(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	if err := c.CreateWorkload(ctx, "ns", testSpec()); err != nil {
		t.Fatalf("CreateWorkload() error = %v", err)
	}
	name := naming.DeploymentName(testDeploymentID)
	if err := c.RestartWorkload(ctx, "ns", name); err != nil {
		t.Fatalf("RestartWorkload() error = %v", err)
	}
	dep, _ := c.Clientset.AppsV1().Deployments("ns").Get(ctx, name, metav1.GetOptions{})
	if dep.Spec.Template.Annotations[AnnotationRestartAt] == "" {
		t.Fatalf("restart annotation not set")
	}
}

func TestUpdateWorkloadEnvMergeAndRestore(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	if err := c.CreateWorkload(ctx, "ns", testSpec()); err != nil {
		t.Fatalf("CreateWorkload() error = %v", err)
	}
	name := naming.DeploymentName(testDeploymentID)

	snapshot, err := c.UpdateWorkloadEnv(ctx, "ns", name, map[string]string{"PORT": "9090", "NEW": "yes"})
	if err != nil {
		t.Fatalf("UpdateWorkloadEnv() error = %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].Value != "8080" {
		t.Fatalf("snapshot = %v", snapshot)
	}
	dep, _ := c.Clientset.AppsV1().Deployments("ns").Get(ctx, name, metav1.GetOptions{})
	env := map[string]string{}
	for _, ev := range dep.Spec.Template.Spec.Containers[0].Env {
		env[ev.Name] = ev.Value
	}
	if env["PORT"] != "9090" || env["NEW"] != "yes" {
		t.Fatalf("merged env = %v", env)
	}

	if err := c.RestoreWorkloadEnv(ctx, "ns", name, snapshot); err != nil {
		t.Fatalf("RestoreWorkloadEnv() error = %v", err)
	}
	dep, _ = c.Clientset.AppsV1().Deployments("ns").Get(ctx, name, metav1.GetOptions{})
	got := dep.Spec.Template.Spec.Containers[0].Env
	if len(got) != 1 || got[0].Name != "PORT" || got[0].Value != "8080" {
		t.Fatalf("restored env = %v", got)
	}
}

func TestListPodsSkipsTerminating(t *testing.T) {
	ctx := context.Background()
	now := metav1.Now()
	labels := managedLabels("my-app", testDeploymentID)
	c := &Client{Clientset: fake.NewSimpleClientset(
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "pod-a", Namespace: "ns", Labels: labels}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "pod-b", Namespace: "ns", Labels: labels, DeletionTimestamp: &now}},
	)}
	pods, err := c.ListPods(ctx, "ns", testDeploymentID)
	if err != nil {
		t.Fatalf("ListPods() error = %v", err)
	}
	if len(pods) != 1 || pods[0].Name != "pod-a" {
		t.Fatalf("pods = %v", pods)
	}
}

func TestIngressClassPreference(t *testing.T) {
	ctx := context.Background()
	c := &Client{Clientset: fake.NewSimpleClientset(
		&networkingv1.IngressClass{ObjectMeta: metav1.ObjectMeta{Name: "traefik"}},
		&networkingv1.IngressClass{ObjectMeta: metav1.ObjectMeta{Name: "haproxy"}},
	)}
	if got := c.IngressClass(ctx); got != "haproxy" {
		t.Fatalf("IngressClass() = %s, want haproxy", got)
	}

	c = &Client{Clientset: fake.NewSimpleClientset(
		&networkingv1.IngressClass{ObjectMeta: metav1.ObjectMeta{Name: "contour"}},
	)}
	if got := c.IngressClass(ctx); got != "contour" {
		t.Fatalf("IngressClass() = %s, want contour", got)
	}

	c = newTestClient()
	if got := c.IngressClass(ctx); got != "nginx" {
		t.Fatalf("IngressClass() = %s, want nginx", got)
	}
}

func TestIngressClassConfiguredOverride(t *testing.T) {
	ctx := context.Background()
	c := &Client{
		Clientset: fake.NewSimpleClientset(
			&networkingv1.IngressClass{ObjectMeta: metav1.ObjectMeta{Name: "nginx"}},
		),
		IngressClassName: "traefik",
	}
	if got := c.IngressClass(ctx); got != "traefik" {
		t.Fatalf("IngressClass() = %s, want configured traefik", got)
	}
}

func TestDeleteTLSSecretIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	if err := c.CreateTLSSecret(ctx, "ns", "tls-abc", []byte("cert"), []byte("key")); err != nil {
		t.Fatalf("CreateTLSSecret() error = %v", err)
	}
	if err := c.DeleteTLSSecret(ctx, "ns", "tls-abc"); err != nil {
		t.Fatalf("DeleteTLSSecret() error = %v", err)
	}
	if _, err := c.Clientset.CoreV1().Secrets("ns").Get(ctx, "tls-abc", metav1.GetOptions{}); !apierrors.IsNotFound(err) {
		t.Fatalf("secret still present: %v", err)
	}
	if err := c.DeleteTLSSecret(ctx, "ns", "tls-abc"); err != nil {
		t.Fatalf("DeleteTLSSecret() second call error = %v", err)
	}
}

func TestCreateIngressReturnsURL(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	url, err := c.CreateIngress(ctx, "ns", testSpec(), "nginx", "192-168-1-1.nip.io")
	if err != nil {
		t.Fatalf("CreateIngress() error = %v", err)
	}
	want := "http://my-app-5f1c9a2e.192-168-1-1.nip.io"
	if url != want {
		t.Fatalf("url = %s, want %s", url, want)
	}
	got, err := c.IngressURL(ctx, "ns", testDeploymentID)
	if err != nil {
		t.Fatalf("IngressURL() error = %v", err)
	}
	if got != want {
		t.Fatalf("IngressURL() = %s, want %s", got, want)
	}
}

func TestVerifyRolloutConverged(t *testing.T) {
	ctx := context.Background()
	replicas := int32(2)
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "app-x", Namespace: "ns", Generation: 1},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status: appsv1.DeploymentStatus{
			ObservedGeneration:  1,
			UpdatedReplicas:     2,
			ReadyReplicas:       2,
			UnavailableReplicas: 0,
		},
	}
	c := &Client{Clientset: fake.NewSimpleClientset(dep)}
	if err := c.VerifyRollout(ctx, "ns", "app-x", testDeploymentID); err != nil {
		t.Fatalf("VerifyRollout() error = %v", err)
	}
}

func TestVerifyRolloutFailsOnProgressDeadline(t *testing.T) {
	ctx := context.Background()
	replicas := int32(2)
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "app-x", Namespace: "ns", Generation: 1},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status: appsv1.DeploymentStatus{
			ObservedGeneration: 1,
			Conditions: []appsv1.DeploymentCondition{{
				Type:    appsv1.DeploymentProgressing,
				Status:  corev1.ConditionFalse,
				Reason:  "ProgressDeadlineExceeded",
				Message: "deadline exceeded",
			}},
		},
	}
	c := &Client{Clientset: fake.NewSimpleClientset(dep)}
	if err := c.VerifyRollout(ctx, "ns", "app-x", testDeploymentID); err == nil {
		t.Fatalf("expected rollout failure")
	}
}

func TestPodCrashReason(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "pod-a"},
		Status: corev1.PodStatus{ContainerStatuses: []corev1.ContainerStatus{{
			State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"}},
		}}},
	}
	if reason := podCrashReason(pod); reason == "" {
		t.Fatalf("expected crash reason")
	}
	healthy := &corev1.Pod{Status: corev1.PodStatus{ContainerStatuses: []corev1.ContainerStatus{{
		State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{}},
	}}}}
	if reason := podCrashReason(healthy); reason != "" {
		t.Fatalf("unexpected crash reason %q", reason)
	}
}
