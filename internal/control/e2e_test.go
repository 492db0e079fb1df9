package control_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/control"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugins"
)

// buildFixtureArtifact compiles testdata/fixture into a libplc_*.so inside
// buildDir, mirroring how the real control-program build step produces a
// timestamp-suffixed artifact for internal/program.DiscoverLatest to find.
func buildFixtureArtifact(buildDir string) error {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return fmt.Errorf("could not determine fixture source location")
	}
	fixtureDir := filepath.Join(filepath.Dir(thisFile), "testdata", "fixture")
	outPath := filepath.Join(buildDir, "libplc_fixture_0001.so")

	cmd := exec.Command("go", "build", "-buildmode=plugin", "-o", outPath, fixtureDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

var _ = Describe("Control socket protocol", func() {
	var (
		buildDir   string
		socketPath string
		cancel     context.CancelFunc
		conn       net.Conn
	)

	BeforeEach(func() {
		buildDir = GinkgoT().TempDir()
		Expect(buildFixtureArtifact(buildDir)).To(Succeed(),
			"requires a Go toolchain capable of -buildmode=plugin (linux, cgo enabled)")

		logger := zerolog.Nop()
		tables := image.New()
		host := plugins.NewHost(tables, &logger)
		manager := lifecycle.NewManager(buildDir, "./plugins.conf", tables, host, nil, &logger)

		socketPath = filepath.Join(GinkgoT().TempDir(), "control.sock")
		srv := control.New(socketPath, 1, manager, nil, nil, &logger)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go srv.Run(ctx)

		Eventually(func() error {
			c, err := net.Dial("unix", socketPath)
			if err == nil {
				c.Close()
			}
			return err
		}, 2*time.Second, 10*time.Millisecond).Should(Succeed())

		var err error
		conn, err = net.Dial("unix", socketPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		conn.Close()
		cancel()
	})

	send := func(command string) string {
		_, err := conn.Write([]byte(command + "\n"))
		Expect(err).NotTo(HaveOccurred())
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := bufio.NewReader(conn).ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		return strings.TrimRight(line, "\n")
	}

	It("E1: responds PING:OK to PING", func() {
		Expect(send("PING")).To(Equal("PING:OK"))
	})

	It("E2: starts, reports RUNNING, stops, reports STOPPED", func() {
		Expect(send("START")).To(Equal("START:OK"))
		Expect(send("STATUS")).To(Equal("STATUS:RUNNING"))
		Expect(send("STOP")).To(Equal("STOP:OK"))
		Expect(send("STATUS")).To(Equal("STATUS:STOPPED"))
	})

	It("E3: refuses START while already RUNNING", func() {
		Expect(send("START")).To(Equal("START:OK"))
		Expect(send("START")).To(Equal("START:ERROR_ALREADY_RUNNING"))
		Expect(send("STATUS")).To(Equal("STATUS:RUNNING"))
	})

	It("E4: returns the program MD5 for DEBUG_GET_MD5", func() {
		Expect(send("START")).To(Equal("START:OK"))
		resp := send("DEBUG:45dead")
		Expect(resp).To(HavePrefix("DEBUG:457e"))
		Expect(resp).To(ContainSubstring(hexEncode("abcdef1234567890123456789012345678")))
	})

	It("E5: reports out-of-range for DEBUG_GET_LIST beyond variable count", func() {
		Expect(send("START")).To(Equal("START:OK"))
		Expect(send("DEBUG:440001ffff")).To(Equal("DEBUG:4481"))
	})

	It("E6: reports null timing fields and zero counters before any cycle", func() {
		resp := send("STATS")
		Expect(resp).To(HavePrefix("STATS:{"))
		Expect(resp).To(ContainSubstring(`"scan_count":0`))
		Expect(resp).To(ContainSubstring(`"scan_time":null`))
		Expect(resp).To(ContainSubstring(`"overruns":0`))
		Expect(resp).To(HaveSuffix("}"))
	})
})

func hexEncode(s string) string {
	out := make([]byte, 0, len(s)*2)
	const digits = "0123456789abcdef"
	for _, b := range []byte(s) {
		out = append(out, digits[b>>4], digits[b&0x0f])
	}
	return string(out)
}
