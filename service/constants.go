package service

const (
	// calcKeyPrefix namespaces calculation previews in the cache.
	calcKeyPrefix = "calc:"

	systemActor = "system"

	MaxApplicantIDLength = 128
	MaxReferenceLength   = 256
)
