package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/ecs/ecsiface"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/aws/aws-sdk-go/service/elbv2/elbv2iface"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// ECSClient implements the orchestration boundary against ECS. The
// resource id maps to a service inside a fixed cluster; instances are the
// service's tasks. Drain-mode replacement deregisters the task's IP from a
// load-balancer target group, waits out the configured grace period, then
// stops the task; force mode stops it immediately.
type ECSClient struct {
	ecs            ecsiface.ECSAPI
	elb            elbv2iface.ELBV2API
	cluster        string
	targetGroupARN string
	drainGrace     time.Duration
}

type ECSConfig struct {
	ECS            ecsiface.ECSAPI
	ELB            elbv2iface.ELBV2API
	Cluster        string
	TargetGroupARN string
	DrainGrace     time.Duration
}

func NewECSClient(cfg ECSConfig) *ECSClient {
	if cfg.DrainGrace == 0 {
		cfg.DrainGrace = 30 * time.Second
	}

	return &ECSClient{
		ecs:            cfg.ECS,
		elb:            cfg.ELB,
		cluster:        cfg.Cluster,
		targetGroupARN: cfg.TargetGroupARN,
		drainGrace:     cfg.DrainGrace,
	}
}

func (c *ECSClient) GetDesiredCount(ctx context.Context, resourceID string) (int, error) {
	svc, err := c.describeService(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	return int(aws.Int64Value(svc.DesiredCount)), nil
}

func (c *ECSClient) SetDesiredCount(ctx context.Context, resourceID string, count int) error {
	if count < 0 {
		return fmt.Errorf("%w: negative desired count %d", ErrRejected, count)
	}

	_, err := c.ecs.UpdateServiceWithContext(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(c.cluster),
		Service:      aws.String(resourceID),
		DesiredCount: aws.Int64(int64(count)),
	})
	if err != nil {
		return classifyAWSError("UpdateService", err)
	}

	logger.WithResource(resourceID).Infof("Set desired count to %d", count)
	return nil
}

func (c *ECSClient) ListInstances(ctx context.Context, resourceID string) ([]models.Instance, error) {
	listResp, err := c.ecs.ListTasksWithContext(ctx, &ecs.ListTasksInput{
		Cluster:     aws.String(c.cluster),
		ServiceName: aws.String(resourceID),
	})
	if err != nil {
		return nil, classifyAWSError("ListTasks", err)
	}
	if len(listResp.TaskArns) == 0 {
		return nil, nil
	}

	descResp, err := c.ecs.DescribeTasksWithContext(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(c.cluster),
		Tasks:   listResp.TaskArns,
	})
	if err != nil {
		return nil, classifyAWSError("DescribeTasks", err)
	}

	instances := make([]models.Instance, 0, len(descResp.Tasks))
	for _, task := range descResp.Tasks {
		instances = append(instances, models.Instance{
			InstanceID: aws.StringValue(task.TaskArn),
			RawStatus:  taskStatus(task),
		})
	}

	return instances, nil
}

// taskStatus prefers the container health check verdict and falls back to
// the lifecycle status when health checks are not configured.
func taskStatus(task *ecs.Task) string {
	health := aws.StringValue(task.HealthStatus)
	if health != "" && health != ecs.HealthStatusUnknown {
		return health
	}
	return aws.StringValue(task.LastStatus)
}

func (c *ECSClient) ReplaceInstance(ctx context.Context, resourceID, instanceID string, mode ReplaceMode) error {
	if mode == ReplaceModeDrain {
		if err := c.drain(ctx, instanceID); err != nil {
			return err
		}
	}

	reason := fmt.Sprintf("fleetpilot %s replace", mode)
	_, err := c.ecs.StopTaskWithContext(ctx, &ecs.StopTaskInput{
		Cluster: aws.String(c.cluster),
		Task:    aws.String(instanceID),
		Reason:  aws.String(reason),
	})
	if err != nil {
		return classifyAWSError("StopTask", err)
	}

	logger.WithResource(resourceID).Infof("Replaced instance %s (mode: %s)", instanceID, mode)
	return nil
}

// drain pulls the task out of the load balancer and waits the grace
// period so in-flight requests finish. Without a configured target group
// the stop itself relies on the service's own deregistration delay.
func (c *ECSClient) drain(ctx context.Context, instanceID string) error {
	if c.targetGroupARN == "" || c.elb == nil {
		return c.waitGrace(ctx)
	}

	ip, err := c.taskPrivateIP(ctx, instanceID)
	if err != nil {
		return err
	}
	if ip == "" {
		logger.Warnf("No private IP found for task %s, skipping deregistration", instanceID)
		return c.waitGrace(ctx)
	}

	_, err = c.elb.DeregisterTargetsWithContext(ctx, &elbv2.DeregisterTargetsInput{
		TargetGroupArn: aws.String(c.targetGroupARN),
		Targets:        []*elbv2.TargetDescription{{Id: aws.String(ip)}},
	})
	if err != nil {
		return classifyAWSError("DeregisterTargets", err)
	}

	return c.waitGrace(ctx)
}

func (c *ECSClient) waitGrace(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: drain interrupted: %v", ErrUnavailable, ctx.Err())
	case <-time.After(c.drainGrace):
		return nil
	}
}

func (c *ECSClient) taskPrivateIP(ctx context.Context, instanceID string) (string, error) {
	resp, err := c.ecs.DescribeTasksWithContext(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(c.cluster),
		Tasks:   []*string{aws.String(instanceID)},
	})
	if err != nil {
		return "", classifyAWSError("DescribeTasks", err)
	}

	for _, task := range resp.Tasks {
		for _, attachment := range task.Attachments {
			for _, detail := range attachment.Details {
				if aws.StringValue(detail.Name) == "privateIPv4Address" {
					return aws.StringValue(detail.Value), nil
				}
			}
		}
	}

	return "", nil
}

func (c *ECSClient) describeService(ctx context.Context, resourceID string) (*ecs.Service, error) {
	resp, err := c.ecs.DescribeServicesWithContext(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(c.cluster),
		Services: []*string{aws.String(resourceID)},
	})
	if err != nil {
		return nil, classifyAWSError("DescribeServices", err)
	}
	if len(resp.Services) == 0 {
		return nil, fmt.Errorf("%w: service %s not found in cluster %s", ErrRejected, resourceID, c.cluster)
	}

	return resp.Services[0], nil
}

func (c *ECSClient) Close() error {
	return nil
}

// classifyAWSError maps SDK errors onto the boundary's retryable /
// non-retryable split. Throttling and server-side failures are transient;
// everything else the API explicitly refused.
func classifyAWSError(op string, err error) error {
	if reqErr, ok := err.(awserr.RequestFailure); ok {
		if reqErr.StatusCode() >= 500 {
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
		}
	}

	if awsErr, ok := err.(awserr.Error); ok {
		switch awsErr.Code() {
		case "ThrottlingException", "Throttling", "RequestLimitExceeded",
			ecs.ErrCodeServerException, "RequestError", "RequestTimeout":
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
		}
		return fmt.Errorf("%w: %s: %v", ErrRejected, op, err)
	}

	// Raw transport errors (connection refused, DNS) are transient.
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
