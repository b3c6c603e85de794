package services

import (
	"github.com/casbin/casbin/v2"

	"github.com/commercekit/authsvc/domain"
)

// casbinEnforcerWrapper adapts the concrete casbin enforcer to the narrow
// domain interface.
type casbinEnforcerWrapper struct {
	enforcer *casbin.Enforcer
}

func (w *casbinEnforcerWrapper) AddPolicy(params ...interface{}) (bool, error) {
	return w.enforcer.AddPolicy(params...)
}

func (w *casbinEnforcerWrapper) RemovePolicy(params ...interface{}) (bool, error) {
	return w.enforcer.RemovePolicy(params...)
}

func (w *casbinEnforcerWrapper) Enforce(rvals ...interface{}) (bool, error) {
	return w.enforcer.Enforce(rvals...)
}

func (w *casbinEnforcerWrapper) GetPolicy() ([][]string, error) {
	return w.enforcer.GetPolicy()
}

func (w *casbinEnforcerWrapper) SavePolicy() error {
	return w.enforcer.SavePolicy()
}

// WrapEnforcer adapts a concrete enforcer for consumers that take the
// domain interface, such as the authorization middleware.
func WrapEnforcer(enforcer *casbin.Enforcer) domain.CasbinEnforcer {
	return &casbinEnforcerWrapper{enforcer: enforcer}
}

// PolicyServiceImpl implements domain.PolicyService over the RBAC policy
// table.
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service.
func NewPolicyService(enforcer *casbin.Enforcer) domain.PolicyService {
	return &PolicyServiceImpl{enforcer: &casbinEnforcerWrapper{enforcer: enforcer}}
}

// NewPolicyServiceWithEnforcer wires an arbitrary enforcer, used by tests.
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) domain.PolicyService {
	return &PolicyServiceImpl{enforcer: enforcer}
}

// AddPolicy implements domain.PolicyService.
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	if _, err := p.enforcer.AddPolicy(role, resource, action); err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// RemovePolicy implements domain.PolicyService.
func (p *PolicyServiceImpl) RemovePolicy(role, resource, action string) error {
	if _, err := p.enforcer.RemovePolicy(role, resource, action); err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// CheckPermission implements domain.PolicyService.
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(role, resource, action)
}

// GetPolicies implements domain.PolicyService.
func (p *PolicyServiceImpl) GetPolicies() ([][]string, error) {
	return p.enforcer.GetPolicy()
}
