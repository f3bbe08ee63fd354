package kube

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// followIdleTimeout caps how long a follow stream stays open with no new log
// lines. Transports keep clients alive with their own pings; this bound frees
// server-side streams abandoned after the backlog is drained.
var followIdleTimeout = 10 * time.Minute

// LogOptions selects which logs to fetch for a deployment.
type LogOptions struct {
	// TailLines limits each pod's log tail. nil fetches everything.
	TailLines *int64
	// Previous fetches logs from the prior container instance.
	Previous bool
}

// Logs returns a point-in-time snapshot of logs from every pod of the
// deployment, each line prefixed with its pod name, pods in name order.
func (c *Client) Logs(ctx context.Context, namespace, deploymentID string, opts LogOptions) ([]string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	pods, err := c.ListPods(ctx, namespace, deploymentID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pods))
	for _, p := range pods {
		names = append(names, p.Name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		req := c.Clientset.CoreV1().Pods(namespace).GetLogs(name, &corev1.PodLogOptions{
			TailLines: opts.TailLines,
			Previous:  opts.Previous,
		})
		stream, err := req.Stream(ctx)
		if err != nil {
			// A pod may disappear between listing and streaming; keep going.
			lines = append(lines, fmt.Sprintf("[%s] <logs unavailable: %v>", name, err))
			continue
		}
		sc := bufio.NewScanner(stream)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			lines = append(lines, fmt.Sprintf("[%s] %s", name, sc.Text()))
		}
		stream.Close()
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read logs of pod %s: %w", name, err)
		}
	}
	return lines, nil
}

// FollowLogs streams live logs from every pod of the deployment into one
// channel, each line prefixed with its pod name. The channel closes when all
// pod streams end, ctx is cancelled, or no line arrives for followIdleTimeout.
func (c *Client) FollowLogs(ctx context.Context, namespace, deploymentID string) (<-chan string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	list, err := c.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: LabelDeploymentID + "=" + deploymentID,
	})
	if err != nil {
		return nil, fmt.Errorf("list pods in %s: %w", namespace, err)
	}

	out := make(chan string, 64)
	var wg sync.WaitGroup
	for i := range list.Items {
		pod := &list.Items[i]
		if pod.DeletionTimestamp != nil {
			continue
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			c.followPod(ctx, namespace, name, out)
		}(pod.Name)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return watchIdle(ctx, out), nil
}

// PodLogs returns a point-in-time snapshot of one named pod's logs.
func (c *Client) PodLogs(ctx context.Context, namespace, podName string, opts LogOptions) ([]string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	req := c.Clientset.CoreV1().Pods(namespace).GetLogs(podName, &corev1.PodLogOptions{
		TailLines: opts.TailLines,
		Previous:  opts.Previous,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("stream logs of pod %s: %w", podName, err)
	}
	defer stream.Close()
	var lines []string
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read logs of pod %s: %w", podName, err)
	}
	return lines, nil
}

// FollowPodLogs streams live logs from one named pod. The channel closes when
// the stream ends, ctx is cancelled, or no line arrives for followIdleTimeout.
func (c *Client) FollowPodLogs(ctx context.Context, namespace, podName string) (<-chan string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	out := make(chan string, 64)
	go func() {
		defer close(out)
		c.followPod(ctx, namespace, podName, out)
	}()
	return watchIdle(ctx, out), nil
}

// watchIdle forwards lines until the source closes, ctx is cancelled, or the
// idle bound elapses with nothing to forward.
func watchIdle(ctx context.Context, in <-chan string) <-chan string {
	out := make(chan string, 64)
	go func() {
		defer close(out)
		idle := time.NewTimer(followIdleTimeout)
		defer idle.Stop()
		for {
			select {
			case line, ok := <-in:
				if !ok {
					return
				}
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				idle.Reset(followIdleTimeout)
				select {
				case out <- line:
				case <-ctx.Done():
					return
				}
			case <-idle.C:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (c *Client) followPod(ctx context.Context, namespace, name string, out chan<- string) {
	req := c.Clientset.CoreV1().Pods(namespace).GetLogs(name, &corev1.PodLogOptions{Follow: true})
	stream, err := req.Stream(ctx)
	if err != nil {
		select {
		case out <- fmt.Sprintf("[%s] <logs unavailable: %v>", name, err):
		case <-ctx.Done():
		}
		return
	}
	defer stream.Close()
	reader := bufio.NewReader(stream)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			select {
			case out <- fmt.Sprintf("[%s] %s", name, trimNewline(line)):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case out <- fmt.Sprintf("[%s] <stream error: %v>", name, err):
				case <-ctx.Done():
				}
			}
			return
		}
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
