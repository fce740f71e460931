//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/infra"
	"github.com/eliteGoblin/focusd/break_mon/internal/policy"
	"github.com/eliteGoblin/focusd/break_mon/internal/transport"
	"github.com/eliteGoblin/focusd/break_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/break_mon/test/fixtures"
)

const fastSettings = `timer:
  mini:
    interval_seconds: 1
    duration_seconds: 1
  work:
    interval_seconds: 60
    duration_seconds: 30
    postpone_seconds: 20
  tick_interval_ms: 100
daemon:
  stream_addr: ""
  process_scan_interval_seconds: 1
  heartbeat_interval_seconds: 1
`

var _ = Describe("Break daemon", func() {
	var (
		tmpDir      string
		socketPath  string
		configStore *infra.YAMLConfigStore
		statusStore *infra.EncryptedStatusStore
		idle        *fixtures.FakeIdle
		processes   *fixtures.FakeProcesses
		cancel      context.CancelFunc
		done        chan error
	)

	send := func(command string) *domain.View {
		view, err := transport.SendCommand(socketPath, transport.Request{Command: command})
		Expect(err).NotTo(HaveOccurred())
		return view
	}

	status := func() domain.View {
		return *send(transport.CmdStatus)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "breakmon-it-*")
		Expect(err).NotTo(HaveOccurred())

		settingsPath, err := fixtures.WriteSettings(tmpDir, fastSettings)
		Expect(err).NotTo(HaveOccurred())

		paths, err := infra.DetectPaths(filepath.Join(tmpDir, "data"), settingsPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(paths.EnsureDataDir()).To(Succeed())
		socketPath = paths.SocketPath

		configStore = infra.NewYAMLConfigStore(paths.SettingsPath)
		settings, err := configStore.LoadDaemonSettings()
		Expect(err).NotTo(HaveOccurred())
		Expect(settings.StreamAddr).To(BeEmpty())

		patch, err := configStore.LoadConfig()
		Expect(err).NotTo(HaveOccurred())

		idle = fixtures.NewFakeIdle()
		processes = fixtures.NewFakeProcesses()
		logger := zap.NewNop()

		key, err := infra.EnsureKey(infra.NewFileKeyProvider(paths.DataDir), true)
		Expect(err).NotTo(HaveOccurred())
		statusStore, err = infra.NewEncryptedStatusStore(paths.DataDir, key, processes)
		Expect(err).NotTo(HaveOccurred())

		engine := usecase.NewEngine(domain.NewState(patch), idle, configStore, logger)
		scanner := usecase.NewProcessScanner(processes, policy.NewPolicyStore(settings.Watch...), engine,
			settings.ProcessScanInterval(), logger)

		runner := daemon.NewRunner(daemon.RunnerConfig{
			SocketPath:        socketPath,
			StreamAddr:        settings.StreamAddr,
			HeartbeatInterval: settings.HeartbeatInterval(),
			AppVersion:        "integration",
		}, engine, scanner, statusStore, nil, processes, logger)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- runner.Run(ctx) }()

		_, err = daemon.WaitForSocket(socketPath, 3*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
		Eventually(done, 3*time.Second).Should(Receive(BeNil()))
		statusStore.Close()
		os.RemoveAll(tmpDir)
	})

	Describe("break cycle", func() {
		It("starts a micro break while active and ends it once the user steps away", func() {
			Eventually(func() domain.Status { return status().Snapshot.Status }, 3*time.Second, 50*time.Millisecond).
				Should(Equal(domain.StatusInMini))

			idle.Set(5 * time.Second)

			Eventually(func() domain.Status { return status().Snapshot.Status }, 3*time.Second, 50*time.Millisecond).
				Should(Equal(domain.StatusNormal))
		})

		It("skips a forced rest break", func() {
			Expect(send(transport.CmdStartWork).Snapshot.Status).To(Equal(domain.StatusInWork))
			Expect(send(transport.CmdSkipWork).Snapshot.Status).To(Equal(domain.StatusNormal))
		})

		It("postpones a rest break by the configured amount", func() {
			view := send(transport.CmdPostpone)
			Expect(view.Snapshot.Status).To(Equal(domain.StatusNormal))
			Expect(view.NextWorkIn()).To(BeNumerically("~", 20, 0.5))
		})
	})

	Describe("pausing", func() {
		It("freezes timers while paused by the user", func() {
			view := send(transport.CmdPause)
			Expect(view.Snapshot.Paused).To(BeTrue())
			frozen := view.Snapshot.Timings

			Consistently(func() domain.Timings { return status().Snapshot.Timings }, 500*time.Millisecond, 100*time.Millisecond).
				Should(Equal(frozen))

			Expect(send(transport.CmdResume).Snapshot.Paused).To(BeFalse())
		})

		It("pauses while a watched app runs", func() {
			processes.SetRunning("bash", "CptHost")

			Eventually(func() []string { return status().Inhibitors }, 3*time.Second, 50*time.Millisecond).
				Should(ConsistOf("process:zoom"))
			Expect(status().Snapshot.Paused).To(BeTrue())
			Expect(status().Processes).To(ConsistOf("CptHost"))

			processes.SetRunning("bash")

			Eventually(func() bool { return status().Snapshot.Paused }, 3*time.Second, 50*time.Millisecond).
				Should(BeFalse())
		})
	})

	Describe("persistence", func() {
		It("writes config changes to the settings file", func() {
			view, err := transport.SendCommand(socketPath, transport.Request{
				Command: transport.CmdSetConfig,
				Config:  &domain.ConfigPatch{Mini: &domain.BreakConfigPatch{IntervalSeconds: domain.Seconds(90)}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Config.Mini.IntervalSeconds).To(Equal(90.0))
			Expect(view.Snapshot.Timings).To(Equal(domain.Timings{}))

			saved, err := configStore.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			cfg := domain.ApplyPatch(domain.DefaultConfig(), *saved)
			Expect(cfg.Mini.IntervalSeconds).To(Equal(90.0))
			Expect(cfg.Work.PostponeSeconds).To(Equal(20.0))

			settings, err := configStore.LoadDaemonSettings()
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.HeartbeatIntervalSeconds).To(Equal(1))
		})

		It("records heartbeats in the encrypted status store", func() {
			send(transport.CmdPause)

			Eventually(func() bool {
				record, err := statusStore.GetStatus()
				if err != nil || record.View == nil {
					return false
				}
				return record.View.UserPaused
			}, 3*time.Second, 100*time.Millisecond).Should(BeTrue())

			record, err := statusStore.GetStatus()
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Daemon.PID).To(Equal(os.Getpid()))
			Expect(record.Daemon.AppVersion).To(Equal("integration"))

			alive, err := statusStore.IsDaemonAlive()
			Expect(err).NotTo(HaveOccurred())
			Expect(alive).To(BeTrue())
		})
	})
})
