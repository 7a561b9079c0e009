package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssueFlagsStableOrder(t *testing.T) {
	check := &QCCheck{
		Repurchase:        true,
		NoStamp:           true,
		DiameterDeviation: true,
		Cracks:            true,
		NoCertificate:     true,
	}

	assert.Equal(t, []string{
		"repurchase",
		"no_stamp",
		"diameter_deviation",
		"cracks",
		"no_certificate",
	}, check.IssueFlags())
}

func TestIssueFlagsCoverEnumeratedSet(t *testing.T) {
	check := &QCCheck{
		Repurchase:        true,
		PoorQuality:       true,
		NoStamp:           true,
		DiameterDeviation: true,
		Cracks:            true,
		NoMeltStamp:       true,
		NoCertificate:     true,
		CertificateCopy:   true,
	}

	assert.Len(t, check.IssueFlags(), 8)
	assert.Empty(t, (&QCCheck{}).IssueFlags())
}
