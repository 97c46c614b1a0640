// Package playbook reads desired-state playbooks from YAML, watches them
// for changes, and generates brownfield playbooks from existing fabric
// virtual-network configuration.
package playbook
