package worker_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bsodmike/h7/internal/console"
	"github.com/bsodmike/h7/internal/mailbox"
	"github.com/bsodmike/h7/internal/worker"
)

func drainAll(con *console.Console) string {
	var buf bytes.Buffer
	_, err := con.Drain(&buf)
	Expect(err).NotTo(HaveOccurred())
	return buf.String()
}

var _ = Describe("EchoApp", func() {
	var (
		counters *mailbox.Counters
		con      *console.Console
		app      *worker.EchoApp
		ctx      context.Context
		cancel   context.CancelFunc
	)

	BeforeEach(func() {
		counters = &mailbox.Counters{}
		con = console.New(mailbox.NewCounting(mailbox.NewHeap(0), counters))

		var err error
		app, err = worker.NewEchoApp(con, worker.EchoConfig{
			Greeting:     "Hello from testapp!\n",
			PollInterval: time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
		con.Close()
		Expect(counters.Outstanding()).To(BeZero())
	})

	It("should greet, echo input and exit on the stop byte", func() {
		Expect(con.Feed([]byte("hello"))).To(Succeed())
		Expect(con.Feed([]byte("b"))).To(Succeed())
		Expect(con.Feed([]byte("ignored"))).To(Succeed())

		Expect(app.Start(ctx)).To(Succeed())

		Expect(drainAll(con)).To(Equal("Hello from testapp!\nhello"))
		Expect(app.GetStats()["echoed"]).To(Equal(int64(5)))
		Expect(con.GetChar()).To(Equal(byte('i')))
	})

	It("should stop when the context is cancelled", func() {
		done := make(chan error, 1)
		go func() {
			done <- app.Start(ctx)
		}()

		Eventually(app.IsRunning).Should(BeTrue())
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Expect(app.IsRunning()).To(BeFalse())
	})

	It("should refuse to start twice", func() {
		done := make(chan error, 1)
		go func() {
			done <- app.Start(ctx)
		}()
		Eventually(app.IsRunning).Should(BeTrue())

		Expect(app.Start(ctx)).To(MatchError("app already running"))
		cancel()
		Eventually(done).Should(Receive())
	})
})

var _ = Describe("FileReaderWorker", func() {
	var (
		con       *console.Console
		inputFile string
	)

	BeforeEach(func() {
		con = console.New(mailbox.NewHeap(0))

		inputFile = filepath.Join(GinkgoT().TempDir(), "script.txt")
		content := "line 1\nline 2\nline 3\nline 4\nline 5\n"
		Expect(os.WriteFile(inputFile, []byte(content), 0o644)).To(Succeed())
	})

	AfterEach(func() {
		con.Close()
	})

	It("should feed every line to the console", func() {
		reader, err := worker.NewFileReaderWorker(con, worker.FileReaderConfig{
			InputFile:  inputFile,
			BatchSize:  2,
			BufferSize: 1024,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(reader.Start(context.Background())).To(Succeed())
		Expect(reader.GetStats()["processed"]).To(Equal(int64(5)))

		in, _ := con.Pending()
		Expect(in).To(Equal(5))

		var got []byte
		for c := con.GetChar(); c != 0; c = con.GetChar() {
			got = append(got, c)
		}
		Expect(string(got)).To(Equal("line 1\nline 2\nline 3\nline 4\nline 5\n"))
	})

	It("should fail for a missing file", func() {
		reader, err := worker.NewFileReaderWorker(con, worker.FileReaderConfig{
			InputFile: filepath.Join(GinkgoT().TempDir(), "missing.txt"),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(reader.Start(context.Background())).To(MatchError(ContainSubstring("failed to open input file")))
		Expect(reader.IsRunning()).To(BeFalse())
	})

	It("should stop replaying when the context is cancelled", func() {
		reader, err := worker.NewFileReaderWorker(con, worker.FileReaderConfig{
			InputFile: inputFile,
			LineDelay: time.Hour,
		})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- reader.Start(ctx)
		}()

		Eventually(reader.IsRunning).Should(BeTrue())
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Expect(reader.GetStats()["processed"]).To(Equal(int64(0)))
	})
})

var _ = Describe("FileWriterWorker", func() {
	var (
		con        *console.Console
		outputFile string
	)

	BeforeEach(func() {
		con = console.New(mailbox.NewHeap(0))
		outputFile = filepath.Join(GinkgoT().TempDir(), "transcript.txt")
	})

	AfterEach(func() {
		con.Close()
	})

	It("should write console output to the transcript", func() {
		writer, err := worker.NewFileWriterWorker(con, worker.FileWriterConfig{
			OutputFile:    outputFile,
			FlushInterval: 5 * time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
		defer writer.Close()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- writer.Start(ctx)
		}()

		Expect(con.PutString([]byte("size: 4, data: one\n"))).To(Succeed())
		Expect(con.PutString([]byte("size: 4, data: two\n"))).To(Succeed())

		Eventually(func() (string, error) {
			data, err := os.ReadFile(outputFile)
			return string(data), err
		}).Should(Equal("size: 4, data: one\nsize: 4, data: two\n"))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(writer.GetStats()["written"]).To(Equal(int64(38)))
	})

	It("should flush what is left when stopped", func() {
		writer, err := worker.NewFileWriterWorker(con, worker.FileWriterConfig{
			OutputFile:    outputFile,
			FlushInterval: time.Hour,
		})
		Expect(err).NotTo(HaveOccurred())
		defer writer.Close()

		Expect(con.PutString([]byte("bye\n"))).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(writer.Start(ctx)).To(Succeed())

		data, err := os.ReadFile(outputFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("bye\n"))
	})

	It("should leave standard output open when writing to it", func() {
		writer, err := worker.NewFileWriterWorker(con, worker.FileWriterConfig{
			OutputFile: worker.Stdout,
		})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(writer.Start(ctx)).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		_, err = os.Stdout.Stat()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should append when asked to", func() {
		Expect(os.WriteFile(outputFile, []byte("old\n"), 0o644)).To(Succeed())

		writer, err := worker.NewFileWriterWorker(con, worker.FileWriterConfig{
			OutputFile: outputFile,
			AppendMode: true,
		})
		Expect(err).NotTo(HaveOccurred())
		defer writer.Close()

		Expect(con.PutString([]byte("new\n"))).To(Succeed())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(writer.Start(ctx)).To(Succeed())

		data, err := os.ReadFile(outputFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("old\nnew\n"))
	})
})
