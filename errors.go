package osal

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfMemory         = errors.New("osal: out of memory")
	ErrOutOfResources      = errors.New("osal: out of resources")
	ErrTimeout             = errors.New("osal: timeout")
	ErrQueueFull           = errors.New("osal: queue full")
	ErrQueueSendTimeout    = errors.New("osal: queue send timeout")
	ErrQueueReceiveTimeout = errors.New("osal: queue receive timeout")
	ErrMutexLockFailed     = errors.New("osal: mutex lock failed")
	ErrNullPtr             = errors.New("osal: null handle")
	ErrInvalidType         = errors.New("osal: invalid type")
	ErrNotFound            = errors.New("osal: not found")
	ErrOutOfIndex          = errors.New("osal: out of index")
	ErrConversion          = errors.New("osal: conversion failed")
)

// UnhandledError carries a backend condition that maps to no sentinel.
// Code is the native error code, or zero.
type UnhandledError struct {
	Reason string
	Code   int
}

func (e *UnhandledError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("osal: unhandled: %s (code %d)", e.Reason, e.Code)
	}
	return "osal: unhandled: " + e.Reason
}

// Unhandled returns an *UnhandledError for reason.
func Unhandled(reason string) error {
	return &UnhandledError{Reason: reason}
}

func unhandledCode(reason string, code int) error {
	return &UnhandledError{Reason: reason, Code: code}
}
