// Package aws implements the candidate source, preprocessor, and deleter
// for AWS server groups (auto scaling groups).
package aws

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	autoscalingtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/fieldbay/sweeper/rules"
	"github.com/fieldbay/sweeper/types"
)

// ResourceType is the namespace resource type served by this provider.
const ResourceType = "servergroup"

// DetailInstanceIDs carries raw instance IDs between listing and the
// health preprocessing step.
const DetailInstanceIDs = "instance_ids"

// Processes suspended when a server group is disabled for traffic.
const suspendedForTraffic = "AddToLoadBalancer"

// instanceStatusPageSize is the DescribeInstanceStatus request limit.
const instanceStatusPageSize = 100

// ServerGroups lists, preprocesses, and deletes auto scaling groups.
type ServerGroups struct {
	asgClient *autoscaling.Client
	ec2Client *ec2.Client
}

// NewServerGroups creates the provider using the ambient AWS credential
// chain.
func NewServerGroups(ctx context.Context, region string) (*ServerGroups, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &ServerGroups{
		asgClient: autoscaling.NewFromConfig(cfg),
		ec2Client: ec2.NewFromConfig(cfg),
	}, nil
}

// GetCandidates lists every auto scaling group in the region.
func (p *ServerGroups) GetCandidates(ctx context.Context, _ types.WorkConfiguration) ([]types.Resource, error) {
	var resources []types.Resource

	paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(p.asgClient, &autoscaling.DescribeAutoScalingGroupsInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe auto scaling groups: %w", err)
		}
		for _, asg := range output.AutoScalingGroups {
			resources = append(resources, buildServerGroupResource(asg))
		}
	}
	return resources, nil
}

// GetCandidate fetches one auto scaling group by name. Returns nil when
// the group does not exist.
func (p *ServerGroups) GetCandidate(ctx context.Context, resourceID, name string, _ types.WorkConfiguration) (*types.Resource, error) {
	lookup := resourceID
	if lookup == "" {
		lookup = name
	}

	output, err := p.asgClient.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{lookup},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe auto scaling group %s: %w", lookup, err)
	}
	if len(output.AutoScalingGroups) == 0 {
		return nil, nil
	}

	resource := buildServerGroupResource(output.AutoScalingGroups[0])
	return &resource, nil
}

// Preprocess resolves the discovery health of every candidate's instances
// via EC2 instance status.
func (p *ServerGroups) Preprocess(ctx context.Context, candidates []types.Candidate, _ types.WorkConfiguration) ([]types.Candidate, error) {
	var allIDs []string
	for _, candidate := range candidates {
		allIDs = append(allIDs, instanceIDs(candidate.Resource)...)
	}

	health, err := p.describeInstanceHealth(ctx, allIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		instances := make([]rules.ServerGroupInstance, 0)
		for _, id := range instanceIDs(candidate.Resource) {
			state, ok := health[id]
			if !ok {
				state = rules.HealthUnknown
			}
			instances = append(instances, rules.ServerGroupInstance{ID: id, HealthState: state})
		}

		details := make(map[string]any, len(candidate.Details)+1)
		for k, v := range candidate.Details {
			details[k] = v
		}
		details[rules.DetailInstances] = instances
		candidate.Details = details
		out = append(out, candidate)
	}
	return out, nil
}

// DeleteResources force-deletes the auto scaling groups in the batch.
func (p *ServerGroups) DeleteResources(ctx context.Context, resources []types.MarkedResource, cfg types.WorkConfiguration) error {
	for _, m := range resources {
		_, err := p.asgClient.DeleteAutoScalingGroup(ctx, &autoscaling.DeleteAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(m.Resource.ID),
			ForceDelete:          aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("failed to delete auto scaling group %s: %w", m.Resource.ID, err)
		}
	}
	return nil
}

// describeInstanceHealth maps instance IDs to health states, paging at the
// API request limit.
func (p *ServerGroups) describeInstanceHealth(ctx context.Context, ids []string) (map[string]string, error) {
	health := make(map[string]string, len(ids))

	for start := 0; start < len(ids); start += instanceStatusPageSize {
		end := start + instanceStatusPageSize
		if end > len(ids) {
			end = len(ids)
		}

		output, err := p.ec2Client.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
			InstanceIds:         ids[start:end],
			IncludeAllInstances: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe instance status: %w", err)
		}
		for _, status := range output.InstanceStatuses {
			if status.InstanceState == nil {
				continue
			}
			health[aws.ToString(status.InstanceId)] = instanceHealth(string(status.InstanceState.Name))
		}
	}
	return health, nil
}

// buildServerGroupResource converts an auto scaling group to a candidate
// resource.
func buildServerGroupResource(asg autoscalingtypes.AutoScalingGroup) types.Resource {
	name := aws.ToString(asg.AutoScalingGroupName)

	ids := make([]string, 0, len(asg.Instances))
	for _, inst := range asg.Instances {
		ids = append(ids, aws.ToString(inst.InstanceId))
	}

	disabled, lastChange := suspensionInfo(asg.SuspendedProcesses)

	details := map[string]any{
		rules.DetailDisabled: disabled,
		DetailInstanceIDs:    ids,
		"min_size":           aws.ToInt32(asg.MinSize),
		"max_size":           aws.ToInt32(asg.MaxSize),
		"desired_capacity":   aws.ToInt32(asg.DesiredCapacity),
	}
	if !lastChange.IsZero() {
		details[rules.DetailLastChangeAt] = lastChange
	}
	if owner := ownerTag(asg.Tags); owner != "" {
		details["owner"] = owner
	}

	return types.Resource{
		ID:        name,
		Type:      ResourceType,
		Name:      name,
		Grouping:  clusterName(name),
		CreatedAt: aws.ToTime(asg.CreatedTime),
		Details:   details,
	}
}

// ownerTag returns the value of the group's owner tag, either casing.
func ownerTag(tags []autoscalingtypes.TagDescription) string {
	for _, tag := range tags {
		switch aws.ToString(tag.Key) {
		case "Owner", "owner":
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

// serverGroupVersion matches the trailing push version of a server group
// name, e.g. "api-prod-v003".
var serverGroupVersion = regexp.MustCompile(`-v\d+$`)

// clusterName strips the push version so all generations of a cluster
// share one deletion grouping.
func clusterName(name string) string {
	return serverGroupVersion.ReplaceAllString(name, "")
}

// suspensionInfo reports whether traffic is suspended and when the
// suspension happened, parsed from the suspension reason.
func suspensionInfo(processes []autoscalingtypes.SuspendedProcess) (bool, time.Time) {
	for _, proc := range processes {
		if aws.ToString(proc.ProcessName) != suspendedForTraffic {
			continue
		}
		return true, parseSuspensionTime(aws.ToString(proc.SuspensionReason))
	}
	return false, time.Time{}
}

// parseSuspensionTime extracts the timestamp from a suspension reason of
// the form "... at 2024-01-02T03:04:05Z". Zero when absent.
func parseSuspensionTime(reason string) time.Time {
	idx := strings.LastIndex(reason, " at ")
	if idx < 0 {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(reason[idx+4:]))
	if err != nil {
		return time.Time{}
	}
	return ts
}

func instanceIDs(r types.Resource) []string {
	ids, _ := r.Detail(DetailInstanceIDs).([]string)
	return ids
}

// instanceHealth maps an EC2 instance state to a discovery health state.
func instanceHealth(state string) string {
	switch state {
	case "running":
		return rules.HealthUp
	case "stopped", "stopping", "terminated", "shutting-down":
		return rules.HealthOutOfService
	default:
		return rules.HealthUnknown
	}
}
