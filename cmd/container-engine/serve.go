package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/container-engine/container-engine/adapters/kube"
	"github.com/container-engine/container-engine/adapters/notify"
	"github.com/container-engine/container-engine/adapters/store/rdb"
	"github.com/container-engine/container-engine/adapters/webhook"
	"github.com/container-engine/container-engine/internal/certs"
	"github.com/container-engine/container-engine/internal/config"
	"github.com/container-engine/container-engine/internal/dnsverify"
	"github.com/container-engine/container-engine/internal/logging"
	"github.com/container-engine/container-engine/jobs"
	"github.com/container-engine/container-engine/usecase/deployment"
	"github.com/container-engine/container-engine/usecase/domains"
)

// app bundles the wired control plane. The usecase fields are the entry
// points a transport layer (HTTP handlers, gRPC) mounts on top.
type app struct {
	Deployments *deployment.UseCase
	Domains     *domains.UseCase
	Hub         *notify.Hub
	Queue       *jobs.Queue
	Worker      *jobs.Worker
}

// newCmdServe returns the command that runs the control plane: database,
// cluster client, job worker, and the certificate renewal sweep.
func newCmdServe() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the deployment control plane",
		RunE:  runServe,
	}
	cmd.Flags().String("db-url", "", "Database URL (sqlite:/path/to.db) (env CONTAINER_ENGINE_DB_URL)")
	cmd.Flags().String("kubeconfig", "", "Path to kubeconfig (env CONTAINER_ENGINE_KUBECONFIG); in-cluster config wins when present")
	cmd.Flags().String("cluster-domain", "", "Wildcard domain for deployment hostnames (env CONTAINER_ENGINE_CLUSTER_DOMAIN)")
	cmd.Flags().Int("queue-capacity", 0, "Job queue capacity (env CONTAINER_ENGINE_QUEUE_CAPACITY)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	applyFlags(cmd, cfg)
	// The cluster-domain chain reads these unprefixed variables.
	if cfg.ClusterDomain != "" {
		os.Setenv("CLUSTER_DOMAIN", cfg.ClusterDomain)
	}
	if cfg.DomainSuffix != "" {
		os.Setenv("DOMAIN_SUFFIX", cfg.DomainSuffix)
	}

	db, err := rdb.OpenFromURL(cfg.DBURL)
	if err != nil {
		return err
	}
	if err := rdb.AutoMigrate(db); err != nil {
		return err
	}
	deployments := rdb.NewDeploymentRepository(db)
	domainRepo := rdb.NewDomainRepository(db)
	certRepo := rdb.NewCertificateRepository(db)
	webhookRepo := rdb.NewWebhookRepository(db)

	kubeClient, err := kube.NewClient(ctx, cfg.Kubeconfig, &kube.Options{UserAgent: "container-engine/" + version})
	if err != nil {
		return err
	}
	if err := kubeClient.Ping(ctx); err != nil {
		return fmt.Errorf("cluster unreachable: %w", err)
	}
	if cfg.IngressClass != "" {
		kubeClient.IngressClassName = cfg.IngressClass
	}

	queue := jobs.NewQueue(cfg.QueueCapacity)
	hub := notify.NewHub()
	dispatcher := webhook.NewDispatcher(webhookRepo)
	worker := jobs.NewWorker(queue, &jobs.Repos{
		Deployments:  deployments,
		Domains:      domainRepo,
		Certificates: certRepo,
	}, kube.NewOrchestrator(kubeClient), hub, dispatcher)

	a := &app{
		Deployments: deployment.NewUseCase(&deployment.Repos{Deployment: deployments}, queue, kubeClient),
		Domains: domains.NewUseCase(&domains.Repos{
			Domain:      domainRepo,
			Certificate: certRepo,
			Deployment:  deployments,
		}, dnsverify.New(), certs.NewIssuer(cfg.Organization), kubeClient, kubeClient.IngressEndpoint(ctx)),
		Hub:    hub,
		Queue:  queue,
		Worker: worker,
	}
	a.Domains.Dispatcher = dispatcher

	stopRenewal, err := a.Domains.StartRenewal(ctx, cfg.RenewalSchedule)
	if err != nil {
		return err
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		a.Worker.Run(ctx)
	}()

	logger.Info(ctx, "control plane ready",
		"clusterDomain", kubeClient.ClusterDomain(ctx),
		"ingressClass", kubeClient.IngressClass(ctx),
		"queueCapacity", cfg.QueueCapacity)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-runCtx.Done()

	logger.Info(ctx, "shutting down, draining job queue", "queued", a.Queue.Len())
	stopRenewal()
	a.Queue.Close()
	<-workerDone
	return nil
}

// applyFlags lets explicitly set command line flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("db-url") {
		cfg.DBURL, _ = cmd.Flags().GetString("db-url")
	}
	if cmd.Flags().Changed("kubeconfig") {
		cfg.Kubeconfig, _ = cmd.Flags().GetString("kubeconfig")
	}
	if cmd.Flags().Changed("cluster-domain") {
		cfg.ClusterDomain, _ = cmd.Flags().GetString("cluster-domain")
	}
	if cmd.Flags().Changed("queue-capacity") {
		cfg.QueueCapacity, _ = cmd.Flags().GetInt("queue-capacity")
	}
}
