// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container starts and stops the local service containers (Redis,
// MongoDB) that back the optional search cache, using docker or podman.
package container

import (
	"fmt"
	"os/exec"
	"strconv"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Service describes one detached backing container.
type Service struct {
	Name  string
	Image string
	Port  int
}

// Cache backends runnable for local development.
var (
	Redis = Service{Name: "kit-engine-redis", Image: "redis:7", Port: 6379}
	Mongo = Service{Name: "kit-engine-mongo", Image: "mongo:7", Port: 27017}
)

// Runtime runs service containers.
type Runtime interface {
	// Name returns the runtime binary ("docker" or "podman").
	Name() string

	// Available reports whether the binary is on PATH and answers info.
	Available() bool

	// Start runs svc detached, publishing its port on the host. A running
	// container with the same name is left alone.
	Start(svc Service) error

	// Stop stops svc's container. Stopping a missing container is not an
	// error.
	Stop(svc Service) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// runtime implements Runtime; docker and podman accept the same arguments.
type runtime struct {
	bin  string
	exec executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) running(svc Service) bool {
	return r.exec.RunSilent(r.bin, "container", "inspect", svc.Name) == nil
}

func (r *runtime) Start(svc Service) error {
	if r.running(svc) {
		return nil
	}
	port := strconv.Itoa(svc.Port)
	err := r.exec.RunSilent(r.bin, "run", "-d", "--rm",
		"--name", svc.Name, "-p", port+":"+port, svc.Image)
	if err != nil {
		return fmt.Errorf("starting %s with %s: %w", svc.Name, r.bin, err)
	}
	return nil
}

func (r *runtime) Stop(svc Service) error {
	if !r.running(svc) {
		return nil
	}
	if err := r.exec.RunSilent(r.bin, "stop", svc.Name); err != nil {
		return fmt.Errorf("stopping %s with %s: %w", svc.Name, r.bin, err)
	}
	return nil
}

// DetectRuntime tries docker first, then podman.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(osExecutor{})
}

func detectRuntime(exec executor) (Runtime, error) {
	for _, bin := range []string{binDocker, binPodman} {
		r := &runtime{bin: bin, exec: exec}
		if r.Available() {
			return r, nil
		}
	}
	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
