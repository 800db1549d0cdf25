package rias

import "errors"

// Sentinel errors returned by Cluster operations.
var (
	ErrNoAvailableNodes = errors.New("rias: no available nodes")
	ErrNodeNotFound     = errors.New("rias: node not found")
	ErrClusterShutdown  = errors.New("rias: cluster is shutting down")
)
