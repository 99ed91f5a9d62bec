package config_test

import (
	"os"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/durationjson"
	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeFile := func(name, contents string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(contents), 0644)).To(Succeed())
		return path
	}

	Describe("ClientConfig", func() {
		It("defaults to the local supervisor", func() {
			cfg := config.DefaultClientConfig()
			Expect(cfg.Host).To(Equal("127.0.0.1"))
			Expect(cfg.Port).To(Equal(43273))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("loads JSON over the defaults", func() {
			path := writeFile("client.json", `{"host": "10.0.0.5", "poll_timeout": "30s"}`)

			cfg := config.DefaultClientConfig()
			Expect(config.Load(path, &cfg)).To(Succeed())

			Expect(cfg.Host).To(Equal("10.0.0.5"))
			Expect(cfg.Port).To(Equal(43273))
			Expect(cfg.PollTimeout).To(Equal(durationjson.Duration(30 * time.Second)))
			Expect(cfg.PollInterval).To(Equal(durationjson.Duration(100 * time.Millisecond)))
		})

		It("loads YAML", func() {
			path := writeFile("client.yml", "port: 9000\npoll_interval: 250ms\nlog_level: debug\n")

			cfg := config.DefaultClientConfig()
			Expect(config.Load(path, &cfg)).To(Succeed())

			Expect(cfg.Port).To(Equal(9000))
			Expect(cfg.PollInterval).To(Equal(durationjson.Duration(250 * time.Millisecond)))
			Expect(cfg.LogLevel).To(Equal("debug"))
		})

		It("reports every invalid field", func() {
			cfg := config.ClientConfig{Port: 70000, PollTimeout: -1, LogLevel: "loud"}

			err := cfg.Validate()
			Expect(err).To(MatchError(config.ErrHostRequired))
			Expect(err).To(MatchError(config.ErrPortInvalid))
			Expect(err).To(MatchError(config.ErrIntervalInvalid))
			Expect(err).To(MatchError(config.ErrTimeoutInvalid))
			Expect(err).To(MatchError(ContainSubstring(`unknown log level "loud"`)))
		})
	})

	Describe("SupervisorConfig", func() {
		It("has valid defaults", func() {
			Expect(config.DefaultSupervisorConfig().Validate()).To(Succeed())
		})

		It("rejects a negative start delay", func() {
			cfg := config.DefaultSupervisorConfig()
			cfg.StartDelay = durationjson.Duration(-time.Second)
			Expect(cfg.Validate()).To(MatchError(config.ErrDelayInvalid))
		})
	})

	Describe("Load", func() {
		It("fails for a missing file", func() {
			cfg := config.DefaultClientConfig()
			Expect(config.Load(filepath.Join(dir, "missing.json"), &cfg)).To(MatchError(ContainSubstring("read config")))
		})

		It("fails for an unparseable duration", func() {
			path := writeFile("bad.json", `{"poll_interval": "soon"}`)
			cfg := config.DefaultClientConfig()
			Expect(config.Load(path, &cfg)).To(MatchError(ContainSubstring("parse config")))
		})
	})

	Describe("ParseLogLevel", func() {
		It("maps level names", func() {
			Expect(config.ParseLogLevel("debug")).To(Equal(lager.DEBUG))
			Expect(config.ParseLogLevel("")).To(Equal(lager.INFO))
			Expect(config.ParseLogLevel("error")).To(Equal(lager.ERROR))
		})
	})
})
