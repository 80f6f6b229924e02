package braketilt_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBrakeTilt(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "BrakeTilt Suite")
}
