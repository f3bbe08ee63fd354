package kube

import (
	"context"
	"net"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/container-engine/container-engine/internal/logging"
)

// fallbackDomain is used when no wildcard DNS target can be derived.
const fallbackDomain = "k8s.local"

// preferredIngressClasses is the lookup order when multiple ingress
// controllers are installed.
var preferredIngressClasses = []string{"nginx", "public", "haproxy", "traefik", "istio"}

// ClusterDomain resolves the wildcard domain under which deployment
// hostnames are synthesized. Resolution order:
//  1. CLUSTER_DOMAIN environment variable
//  2. DOMAIN_SUFFIX environment variable
//  3. <node-ip with dashes>.nip.io for recognized local clusters
//  4. k8s.local
func (c *Client) ClusterDomain(ctx context.Context) string {
	if v := os.Getenv("CLUSTER_DOMAIN"); v != "" {
		return v
	}
	if v := os.Getenv("DOMAIN_SUFFIX"); v != "" {
		return v
	}
	logger := logging.FromContext(ctx)
	kind := c.detectClusterType()
	ip := c.nodeAddress(ctx)
	if ip == "" {
		ip = c.kubeconfigServerIP()
	}
	if ip != "" {
		domain := strings.ReplaceAll(ip, ".", "-") + ".nip.io"
		logger.Info(ctx, "derived cluster domain", "clusterType", kind, "domain", domain)
		return domain
	}
	logger.Warn(ctx, "could not derive cluster domain, using fallback", "domain", fallbackDomain)
	return fallbackDomain
}

// detectClusterType identifies well-known local cluster flavors from the
// kubeconfig context name, environment hints, and the server version string.
func (c *Client) detectClusterType() string {
	name := strings.ToLower(c.currentContextName())
	for _, t := range []string{"microk8s", "minikube", "kind", "docker-desktop"} {
		if strings.Contains(name, t) {
			return t
		}
	}
	if os.Getenv("KIND_CLUSTER_NAME") != "" {
		return "kind"
	}
	if c.Clientset != nil {
		if v, err := c.Clientset.Discovery().ServerVersion(); err == nil {
			gv := strings.ToLower(v.GitVersion)
			switch {
			case strings.Contains(gv, "minikube"):
				return "minikube"
			case strings.Contains(gv, "k3s"):
				return "k3s"
			}
		}
	}
	return ""
}

// nodeAddress returns a routable node IP, preferring ExternalIP over
// InternalIP.
func (c *Client) nodeAddress(ctx context.Context) string {
	if c == nil || c.Clientset == nil {
		return ""
	}
	nodes, err := c.Clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil || len(nodes.Items) == 0 {
		return ""
	}
	var internal string
	for i := range nodes.Items {
		for _, addr := range nodes.Items[i].Status.Addresses {
			switch addr.Type {
			case corev1.NodeExternalIP:
				if addr.Address != "" {
					return addr.Address
				}
			case corev1.NodeInternalIP:
				if internal == "" && addr.Address != "" && addr.Address != "127.0.0.1" {
					internal = addr.Address
				}
			}
		}
	}
	return internal
}

// kubeconfigFile is the subset of kubeconfig structure needed to locate the
// current context and its API server endpoint.
type kubeconfigFile struct {
	CurrentContext string `yaml:"current-context"`
	Contexts       []struct {
		Name    string `yaml:"name"`
		Context struct {
			Cluster string `yaml:"cluster"`
		} `yaml:"context"`
	} `yaml:"contexts"`
	Clusters []struct {
		Name    string `yaml:"name"`
		Cluster struct {
			Server string `yaml:"server"`
		} `yaml:"cluster"`
	} `yaml:"clusters"`
}

func (c *Client) loadKubeconfig() *kubeconfigFile {
	if c == nil || c.KubeconfigPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.KubeconfigPath)
	if err != nil {
		return nil
	}
	var kc kubeconfigFile
	if err := yaml.Unmarshal(data, &kc); err != nil {
		return nil
	}
	return &kc
}

func (c *Client) currentContextName() string {
	kc := c.loadKubeconfig()
	if kc == nil {
		return ""
	}
	return kc.CurrentContext
}

// kubeconfigServerIP extracts the API server IP of the current context from
// the kubeconfig file, or from the REST config host as a last resort.
func (c *Client) kubeconfigServerIP() string {
	server := ""
	if kc := c.loadKubeconfig(); kc != nil {
		clusterName := ""
		for _, cx := range kc.Contexts {
			if cx.Name == kc.CurrentContext {
				clusterName = cx.Context.Cluster
			}
		}
		for _, cl := range kc.Clusters {
			if cl.Name == clusterName {
				server = cl.Cluster.Server
			}
		}
	}
	if server == "" && c != nil && c.RESTConfig != nil {
		server = c.RESTConfig.Host
	}
	if server == "" {
		return ""
	}
	u, err := url.Parse(server)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		return ""
	}
	return host
}

// IngressClass picks the ingress class to use: the configured override when
// present, then the first installed class matching the preference list,
// otherwise the first installed class, otherwise "nginx".
func (c *Client) IngressClass(ctx context.Context) string {
	if c != nil && c.IngressClassName != "" {
		return c.IngressClassName
	}
	if c == nil || c.Clientset == nil {
		return "nginx"
	}
	classes, err := c.Clientset.NetworkingV1().IngressClasses().List(ctx, metav1.ListOptions{})
	if err != nil || len(classes.Items) == 0 {
		return "nginx"
	}
	installed := make(map[string]bool, len(classes.Items))
	for i := range classes.Items {
		installed[classes.Items[i].Name] = true
	}
	for _, pref := range preferredIngressClasses {
		if installed[pref] {
			return pref
		}
	}
	return classes.Items[0].Name
}
