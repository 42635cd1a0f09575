package mailbox_test

import (
	"encoding/binary"
	"runtime"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bsodmike/h7/internal/mailbox"
)

var _ = Describe("Ring", func() {
	var alloc mailbox.Allocator

	BeforeEach(func() {
		alloc = mailbox.NewHeap(0)
	})

	It("should round the capacity up to a power of two", func() {
		Expect(mailbox.NewRing(0).Cap()).To(Equal(1))
		Expect(mailbox.NewRing(5).Cap()).To(Equal(8))
		Expect(mailbox.NewRing(8).Cap()).To(Equal(8))
	})

	It("should return nil when empty", func() {
		ring := mailbox.NewRing(4)
		Expect(ring.IsEmpty()).To(BeTrue())
		Expect(ring.TryPop()).To(BeNil())
	})

	It("should report ErrFull once every slot is taken", func() {
		ring := mailbox.NewRing(4)
		for i := 0; i < ring.Cap(); i++ {
			msg, err := mailbox.NewMessageCopy(alloc, []byte{byte(i)})
			Expect(err).NotTo(HaveOccurred())
			Expect(ring.TryPush(msg)).To(Succeed())
		}

		extra, err := mailbox.NewMessageCopy(alloc, []byte{0xff})
		Expect(err).NotTo(HaveOccurred())
		Expect(ring.TryPush(extra)).To(MatchError(mailbox.ErrFull))
		extra.Delete()

		for i := 0; i < ring.Cap(); i++ {
			msg := ring.TryPop()
			Expect(msg).NotTo(BeNil())
			Expect(msg.Data()).To(Equal([]byte{byte(i)}))
			msg.Delete()
		}
		Expect(ring.IsEmpty()).To(BeTrue())
	})

	It("should pass messages in order between one producer and one consumer", func() {
		const total = 10_000
		ring := mailbox.NewRing(16)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			for i := 0; i < total; i++ {
				buf := make([]byte, 4)
				binary.LittleEndian.PutUint32(buf, uint32(i))
				msg, err := mailbox.NewMessage(alloc, buf)
				Expect(err).NotTo(HaveOccurred())
				for ring.TryPush(msg) != nil {
					runtime.Gosched()
				}
			}
		}()

		for i := 0; i < total; {
			msg := ring.TryPop()
			if msg == nil {
				runtime.Gosched()
				continue
			}
			Expect(binary.LittleEndian.Uint32(msg.Data())).To(Equal(uint32(i)))
			msg.Delete()
			i++
		}
		Eventually(done).Should(BeClosed())
	})

	It("should keep Len within bounds while another goroutine pushes and pops", func() {
		const total = 10_000
		ring := mailbox.NewRing(4)

		var stop atomic.Bool
		sampled := make(chan []int, 1)
		go func() {
			defer GinkgoRecover()
			var bad []int
			for !stop.Load() {
				if n := ring.Len(); n < 0 || n > ring.Cap() {
					bad = append(bad, n)
				}
			}
			sampled <- bad
		}()

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			for i := 0; i < total; i++ {
				msg, err := mailbox.NewMessageCopy(alloc, []byte{byte(i)})
				Expect(err).NotTo(HaveOccurred())
				for ring.TryPush(msg) != nil {
					runtime.Gosched()
				}
			}
		}()

		for i := 0; i < total; {
			if msg := ring.TryPop(); msg != nil {
				msg.Delete()
				i++
				continue
			}
			runtime.Gosched()
		}
		Eventually(done).Should(BeClosed())

		stop.Store(true)
		Eventually(sampled).Should(Receive(BeEmpty()))
	})
})
