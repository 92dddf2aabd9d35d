package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusTransitions(t *testing.T) {
	allowed := map[TaskStatus][]TaskStatus{
		TaskOpen:          {TaskOpen, TaskInDevelopment, TaskClosed},
		TaskInDevelopment: {TaskInDevelopment, TaskInTest, TaskClosed, TaskOpen},
		TaskInTest:        {TaskInTest, TaskClosed, TaskInDevelopment, TaskOpen},
		TaskClosed:        {TaskClosed, TaskOpen},
	}
	all := []TaskStatus{TaskOpen, TaskInDevelopment, TaskInTest, TaskClosed}

	for from, targets := range allowed {
		for _, to := range all {
			assert.Equal(t, contains(targets, to), from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.False(t, TaskStatus("blocked").CanTransitionTo(TaskOpen))
	assert.False(t, TaskOpen.CanTransitionTo("blocked"))
	assert.False(t, TaskStatus("blocked").CanTransitionTo("blocked"))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, RoleEmployee.Valid())
	assert.False(t, Role("owner").Valid())
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, TaskPriority("urgent").Valid())
}

func TestPrincipalRoles(t *testing.T) {
	assert.True(t, Principal{Role: RoleAdmin}.IsStaff())
	assert.True(t, Principal{Role: RoleManager}.IsStaff())
	assert.False(t, Principal{Role: RoleEmployee}.IsStaff())
	assert.False(t, Principal{Role: RoleManager}.IsAdmin())
}

func contains(list []TaskStatus, s TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
