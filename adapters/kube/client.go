package kube

import (
	"context"
	"fmt"
	"os"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Labels stamped onto every managed object so cluster resources can always be
// traced back to their deployment record.
const (
	LabelApp          = "app"
	LabelDeploymentID = "deployment-id"
	LabelManagedBy    = "managed-by"
	ManagedByValue    = "container-engine"

	AnnotationAppName   = "container-engine.io/app-name"
	AnnotationUserID    = "container-engine.io/user-id"
	AnnotationRestartAt = "kubectl.kubernetes.io/restartedAt"
)

// Client wraps commonly used Kubernetes clients and the underlying REST config.
// Keep this package focused on resource orchestration; credential retrieval
// lives with the caller, which passes kubeconfig bytes or a REST config here.
type Client struct {
	// RESTConfig is the configuration used to talk to the API server.
	RESTConfig *rest.Config
	// Clientset provides typed clients for core/built-in resources.
	Clientset kubernetes.Interface
	// KubeconfigPath is retained for cluster domain detection from context names.
	KubeconfigPath string
	// IngressClassName, when set, bypasses ingress class auto-detection.
	IngressClassName string
}

// Options controls client construction tuning. All fields are optional.
type Options struct {
	// UserAgent adds a custom user agent to the REST config.
	UserAgent string
	// QPS sets the allowed queries per second on the REST client.
	QPS float32
	// Burst sets the client-side rate limiter burst.
	Burst int
}

func (o *Options) applyDefaults() {
	if o.QPS <= 0 {
		o.QPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 50
	}
}

// NewClient constructs a Client from the default loading rules: in-cluster
// config when available, otherwise the given kubeconfig path (or $KUBECONFIG /
// ~/.kube/config when empty).
func NewClient(ctx context.Context, kubeconfigPath string, opts *Options) (*Client, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		c, err := NewClientFromRESTConfig(cfg, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
	cfg, err := loader.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	c, err := NewClientFromRESTConfig(cfg, opts)
	if err != nil {
		return nil, err
	}
	c.KubeconfigPath = rules.GetDefaultFilename()
	if kubeconfigPath != "" {
		c.KubeconfigPath = kubeconfigPath
	}
	return c, nil
}

// NewClientFromKubeconfig constructs a Client from kubeconfig bytes.
func NewClientFromKubeconfig(_ context.Context, kubeconfig []byte, opts *Options) (*Client, error) {
	if len(kubeconfig) == 0 {
		return nil, fmt.Errorf("kubeconfig is empty")
	}
	cfg, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("build REST config from kubeconfig: %w", err)
	}
	return NewClientFromRESTConfig(cfg, opts)
}

// NewClientFromKubeconfigPath constructs a Client from a kubeconfig file path.
func NewClientFromKubeconfigPath(ctx context.Context, path string, opts *Options) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kubeconfig file: %w", err)
	}
	c, err := NewClientFromKubeconfig(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	c.KubeconfigPath = path
	return c, nil
}

// NewClientFromRESTConfig constructs a Client from an existing rest.Config.
func NewClientFromRESTConfig(cfg *rest.Config, opts *Options) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("REST config is nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	opts.applyDefaults()

	cfg.QPS = opts.QPS
	cfg.Burst = opts.Burst
	if opts.UserAgent != "" {
		_ = rest.AddUserAgent(cfg, opts.UserAgent)
	}

	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}

	return &Client{RESTConfig: cfg, Clientset: cs}, nil
}

// Ping verifies API server connectivity by requesting the server version.
func (c *Client) Ping(_ context.Context) error {
	if c == nil || c.Clientset == nil {
		return fmt.Errorf("kube client is not initialized")
	}
	if _, err := c.Clientset.Discovery().ServerVersion(); err != nil {
		return fmt.Errorf("server version: %w", err)
	}
	return nil
}

func (c *Client) check() error {
	if c == nil || c.Clientset == nil {
		return fmt.Errorf("kube client is not initialized")
	}
	return nil
}

// managedLabels returns the label set applied to every object owned by a
// deployment. The app label doubles as the pod selector.
func managedLabels(appName, deploymentID string) map[string]string {
	return map[string]string{
		LabelApp:          appName,
		LabelDeploymentID: deploymentID,
		LabelManagedBy:    ManagedByValue,
	}
}
