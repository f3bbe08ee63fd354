package deployment

import (
	"context"
	"errors"
	"testing"

	"github.com/container-engine/container-engine/adapters/kube"
	"github.com/container-engine/container-engine/adapters/store/memory"
	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/jobs"
)

type fakeLogs struct {
	pods  []model.PodInfo
	lines []string
}

func (f *fakeLogs) ListPods(_ context.Context, _, _ string) ([]model.PodInfo, error) {
	return f.pods, nil
}

func (f *fakeLogs) Logs(_ context.Context, _, _ string, _ kube.LogOptions) ([]string, error) {
	return f.lines, nil
}

func (f *fakeLogs) PodLogs(_ context.Context, _, _ string, _ kube.LogOptions) ([]string, error) {
	return f.lines, nil
}

func (f *fakeLogs) FollowLogs(_ context.Context, _, _ string) (<-chan string, error) {
	ch := make(chan string, len(f.lines))
	for _, l := range f.lines {
		ch <- l
	}
	close(ch)
	return ch, nil
}

func (f *fakeLogs) FollowPodLogs(ctx context.Context, ns, _ string) (<-chan string, error) {
	return f.FollowLogs(ctx, ns, "")
}

func newTestUseCase(queueCap int) (*UseCase, *memory.InMemoryDeploymentRepository, *jobs.Queue) {
	repo := memory.NewInMemoryDeploymentRepository()
	q := jobs.NewQueue(queueCap)
	u := NewUseCase(&Repos{Deployment: repo}, q, &fakeLogs{})
	return u, repo, q
}

func validCreateInput() *CreateInput {
	return &CreateInput{
		UserID:   "user-1",
		AppName:  "demo",
		Image:    "nginx:latest",
		Port:     8080,
		Replicas: 2,
	}
}

func TestCreatePersistsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	u, repo, q := newTestUseCase(10)

	out, err := u.Create(ctx, validCreateInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if out.Deployment.ID == "" || out.Deployment.Status != model.StatusPending {
		t.Fatalf("deployment = %+v", out.Deployment)
	}
	if _, err := repo.Get(ctx, out.Deployment.ID); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	job := <-q.Jobs()
	if job.DeploymentID != out.Deployment.ID {
		t.Fatalf("queued job for %s", job.DeploymentID)
	}
	if _, ok := job.Operation.(model.DeployOp); !ok {
		t.Fatalf("operation = %T", job.Operation)
	}
}

func TestCreateDefaultsReplicas(t *testing.T) {
	u, _, _ := newTestUseCase(10)
	in := validCreateInput()
	in.Replicas = 0
	out, err := u.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if out.Deployment.Replicas != 1 {
		t.Fatalf("replicas = %d, want 1", out.Deployment.Replicas)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	u, _, _ := newTestUseCase(10)
	cases := map[string]func(*CreateInput){
		"missing user":  func(in *CreateInput) { in.UserID = "" },
		"missing app":   func(in *CreateInput) { in.AppName = "" },
		"missing image": func(in *CreateInput) { in.Image = "" },
		"zero port":     func(in *CreateInput) { in.Port = 0 },
		"huge port":     func(in *CreateInput) { in.Port = 70000 },
		"bad env name":  func(in *CreateInput) { in.EnvVars = map[string]string{"1BAD": "x"} },
	}
	for name, mutate := range cases {
		in := validCreateInput()
		mutate(in)
		_, err := u.Create(context.Background(), in)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: error = %v, want *model.ValidationError", name, err)
		}
	}
}

func TestCreateRejectsDuplicateAppName(t *testing.T) {
	ctx := context.Background()
	u, _, q := newTestUseCase(10)
	if _, err := u.Create(ctx, validCreateInput()); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	<-q.Jobs()
	_, err := u.Create(ctx, validCreateInput())
	if !errors.Is(err, model.ErrAppNameConflict) {
		t.Fatalf("error = %v, want ErrAppNameConflict", err)
	}
}

func TestCreateCompensatesOnQueueSaturation(t *testing.T) {
	ctx := context.Background()
	u, repo, q := newTestUseCase(1)

	// Fill the queue so the next create cannot enqueue.
	if err := q.Enqueue(model.Job{DeploymentID: "blocker", Operation: model.StartOp{}}); err != nil {
		t.Fatalf("prefill queue: %v", err)
	}

	_, err := u.Create(ctx, validCreateInput())
	if !errors.Is(err, model.ErrQueueSaturated) {
		t.Fatalf("error = %v, want ErrQueueSaturated", err)
	}
	list, err := repo.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("record left behind after enqueue failure: %v", list)
	}
}

func TestScaleValidatesAndEnqueues(t *testing.T) {
	ctx := context.Background()
	u, _, q := newTestUseCase(10)
	out, _ := u.Create(ctx, validCreateInput())
	<-q.Jobs()

	if err := u.Scale(ctx, &ScaleInput{UserID: "user-1", DeploymentID: out.Deployment.ID, Replicas: -1}); err == nil {
		t.Fatalf("negative replicas accepted")
	}
	if err := u.Scale(ctx, &ScaleInput{UserID: "user-1", DeploymentID: out.Deployment.ID, Replicas: 0}); err != nil {
		t.Fatalf("Scale(0) error = %v", err)
	}
	job := <-q.Jobs()
	op, ok := job.Operation.(model.ScaleOp)
	if !ok || op.TargetReplicas != 0 {
		t.Fatalf("operation = %+v", job.Operation)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	u, _, q := newTestUseCase(10)
	out, _ := u.Create(ctx, validCreateInput())
	<-q.Jobs()

	if _, err := u.Get(ctx, "intruder", out.Deployment.ID); !errors.Is(err, model.ErrDeploymentNotFound) {
		t.Fatalf("foreign Get() error = %v, want ErrDeploymentNotFound", err)
	}
	if err := u.Stop(ctx, "intruder", out.Deployment.ID); !errors.Is(err, model.ErrDeploymentNotFound) {
		t.Fatalf("foreign Stop() error = %v", err)
	}
	if _, err := u.Get(ctx, "user-1", out.Deployment.ID); err != nil {
		t.Fatalf("owner Get() error = %v", err)
	}
}

func TestUpdateEnvValidation(t *testing.T) {
	ctx := context.Background()
	u, _, q := newTestUseCase(10)
	out, _ := u.Create(ctx, validCreateInput())
	<-q.Jobs()

	err := u.UpdateEnv(ctx, &UpdateEnvInput{UserID: "user-1", DeploymentID: out.Deployment.ID})
	if err == nil {
		t.Fatalf("empty env update accepted")
	}
	err = u.UpdateEnv(ctx, &UpdateEnvInput{UserID: "user-1", DeploymentID: out.Deployment.ID, EnvVars: map[string]string{"OK": "1"}})
	if err != nil {
		t.Fatalf("UpdateEnv() error = %v", err)
	}
	job := <-q.Jobs()
	if _, ok := job.Operation.(model.UpdateEnvOp); !ok {
		t.Fatalf("operation = %T", job.Operation)
	}
}

func TestLogsAndPods(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryDeploymentRepository()
	q := jobs.NewQueue(10)
	logs := &fakeLogs{
		pods:  []model.PodInfo{{Name: "pod-a", Phase: "Running", Ready: true}},
		lines: []string{"[pod-a] started"},
	}
	u := NewUseCase(&Repos{Deployment: repo}, q, logs)
	out, _ := u.Create(ctx, validCreateInput())
	<-q.Jobs()

	snap, err := u.GetLogs(ctx, &LogsInput{UserID: "user-1", DeploymentID: out.Deployment.ID})
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	if len(snap.Lines) != 1 || snap.Lines[0] != "[pod-a] started" {
		t.Fatalf("lines = %v", snap.Lines)
	}
	pods, err := u.Pods(ctx, "user-1", out.Deployment.ID)
	if err != nil {
		t.Fatalf("Pods() error = %v", err)
	}
	if len(pods) != 1 || pods[0].Name != "pod-a" {
		t.Fatalf("pods = %v", pods)
	}
}
