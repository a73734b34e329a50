package aclManager

import (
	"context"
	"log"
	"os"

	"github.com/IBM/sarama"
	"github.com/i2-open/i2goKafkaAuth/internal/model"
)

var aclLog = log.New(os.Stdout, "ACL: ", log.Ldate|log.Ltime)

const principalPrefix = "User:"
const anyHost = "*"

// AccessControlManager translates "principal P may read topic T and consume
// under group G" into broker ACL bindings and later removes exactly those
// bindings. Admin connections are opened and closed per call; at one call per
// transfer lifecycle event there is nothing to pool.
type AccessControlManager interface {
	Grant(ctx context.Context, adminProps model.AdminConnectionProperties, principal string, topic string, groupId string) error
	Revoke(ctx context.Context, adminProps model.AdminConnectionProperties, principal string) error
}

type kafkaAclManager struct {
	newAdmin func(ctx context.Context, props model.AdminConnectionProperties) (sarama.ClusterAdmin, error)
}

func NewKafkaAclManager() AccessControlManager {
	return &kafkaAclManager{newAdmin: openClusterAdmin}
}

// Grant creates two READ/ALLOW literal bindings in one administrative call:
// one on the topic, one on the generated consumer group. The broker applies
// the batch as a unit of intent; if the call fails the caller must treat the
// whole grant as failed and issue no credential bundle.
func (k *kafkaAclManager) Grant(ctx context.Context, adminProps model.AdminConnectionProperties, principal string, topic string, groupId string) error {
	admin, err := k.newAdmin(ctx, adminProps)
	if err != nil {
		return &model.UnexpectedError{Op: "cannot connect to broker admin endpoint", Cause: err}
	}
	defer func() { _ = admin.Close() }()

	acl := sarama.Acl{
		Principal:      principalPrefix + principal,
		Host:           anyHost,
		Operation:      sarama.AclOperationRead,
		PermissionType: sarama.AclPermissionAllow,
	}

	bindings := []*sarama.ResourceAcls{
		{
			Resource: sarama.Resource{
				ResourceType:        sarama.AclResourceTopic,
				ResourceName:        topic,
				ResourcePatternType: sarama.AclPatternLiteral,
			},
			Acls: []*sarama.Acl{&acl},
		},
		{
			Resource: sarama.Resource{
				ResourceType:        sarama.AclResourceGroup,
				ResourceName:        groupId,
				ResourcePatternType: sarama.AclPatternLiteral,
			},
			Acls: []*sarama.Acl{&acl},
		},
	}

	if err := admin.CreateACLs(bindings); err != nil {
		return &model.UnexpectedError{Op: "cannot create ACLs", Cause: err}
	}

	aclLog.Printf("Granted READ on topic [%s] and group [%s] to %s", topic, groupId, principal)
	return nil
}

// Revoke deletes every READ/ALLOW binding of the principal across any
// resource. The group id is generated per transfer and not retained once the
// transfer ends, so a wildcard principal filter removes both grants in one
// call regardless of their literal names. A principal with no remaining
// bindings is a no-op success, which makes revocation idempotent.
func (k *kafkaAclManager) Revoke(ctx context.Context, adminProps model.AdminConnectionProperties, principal string) error {
	admin, err := k.newAdmin(ctx, adminProps)
	if err != nil {
		return &model.UnexpectedError{Op: "cannot connect to broker admin endpoint", Cause: err}
	}
	defer func() { _ = admin.Close() }()

	principalName := principalPrefix + principal
	host := anyHost
	filter := sarama.AclFilter{
		ResourceType:              sarama.AclResourceAny,
		ResourcePatternTypeFilter: sarama.AclPatternAny,
		Principal:                 &principalName,
		Host:                      &host,
		Operation:                 sarama.AclOperationRead,
		PermissionType:            sarama.AclPermissionAllow,
	}

	matched, err := admin.DeleteACL(filter, false)
	if err != nil {
		return &model.UnexpectedError{Op: "cannot delete ACLs", Cause: err}
	}

	aclLog.Printf("Revoked %d ACL binding(s) for %s", len(matched), principal)
	return nil
}
