package control_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestControlEndToEnd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Control Socket End-to-End Suite")
}
