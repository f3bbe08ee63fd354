package jobs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/container-engine/container-engine/domain/model"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(10)
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(model.Job{DeploymentID: fmt.Sprintf("dep-%d", i), Operation: model.StartOp{}}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		job := <-q.Jobs()
		if want := fmt.Sprintf("dep-%d", i); job.DeploymentID != want {
			t.Fatalf("job %d = %s, want %s", i, job.DeploymentID, want)
		}
	}
}

func TestQueueFailsFastWhenFull(t *testing.T) {
	q := NewQueue(2)
	if err := q.Enqueue(model.Job{DeploymentID: "a", Operation: model.StopOp{}}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := q.Enqueue(model.Job{DeploymentID: "b", Operation: model.StopOp{}}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	err := q.Enqueue(model.Job{DeploymentID: "c", Operation: model.StopOp{}})
	if !errors.Is(err, model.ErrQueueSaturated) {
		t.Fatalf("Enqueue() error = %v, want ErrQueueSaturated", err)
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	// Draining one slot makes room again.
	<-q.Jobs()
	if err := q.Enqueue(model.Job{DeploymentID: "c", Operation: model.StopOp{}}); err != nil {
		t.Fatalf("Enqueue() after drain error = %v", err)
	}
}

func TestQueueCloseDrains(t *testing.T) {
	q := NewQueue(4)
	_ = q.Enqueue(model.Job{DeploymentID: "a", Operation: model.RestartOp{}})
	q.Close()
	q.Close() // double close is a no-op

	if err := q.Enqueue(model.Job{DeploymentID: "b", Operation: model.RestartOp{}}); !errors.Is(err, model.ErrQueueSaturated) {
		t.Fatalf("Enqueue() after close error = %v", err)
	}

	job, ok := <-q.Jobs()
	if !ok || job.DeploymentID != "a" {
		t.Fatalf("queued job lost after close")
	}
	if _, ok := <-q.Jobs(); ok {
		t.Fatalf("channel not closed after drain")
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0)
	for i := 0; i < DefaultQueueCapacity; i++ {
		if err := q.Enqueue(model.Job{DeploymentID: "x", Operation: model.StartOp{}}); err != nil {
			t.Fatalf("Enqueue() %d error = %v", i, err)
		}
	}
	if err := q.Enqueue(model.Job{DeploymentID: "x", Operation: model.StartOp{}}); !errors.Is(err, model.ErrQueueSaturated) {
		t.Fatalf("expected saturation at default capacity")
	}
}
