package mem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Storage", func() {
	var (
		storage *Storage
	)

	BeforeEach(func() {
		storage = NewStorage(64 * KB)
	})

	It("should read zeros from untouched units", func() {
		data, err := storage.Read(0x100, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte{0, 0, 0, 0}))
	})

	It("should write and read across unit boundaries", func() {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

		Expect(storage.Write(4*KB-4, data)).To(Succeed())

		got, err := storage.Read(4*KB-4, 8)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(data))

		got, err = storage.Read(4*KB, 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte{5, 6}))
	})

	It("should reject accesses beyond the capacity", func() {
		_, err := storage.Read(64*KB, 1)
		Expect(err).To(HaveOccurred())

		err = storage.Write(64*KB-1, []byte{1, 2})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Builders", func() {
	It("should build read requests with a source ID", func() {
		req := ReadReqBuilder{}.
			WithSrc("Agent.Mem").
			WithDst("IOPMP.Top").
			WithAddress(0x1000).
			WithByteSize(0x100).
			WithSrcID(3).
			AsInstructionFetch().
			Build()

		Expect(req.ID).ToNot(BeEmpty())
		Expect(req.GetAddress()).To(Equal(uint64(0x1000)))
		Expect(req.GetByteSize()).To(Equal(uint64(0x100)))
		Expect(req.GetSrcID()).To(Equal(uint16(3)))
		Expect(req.Exec).To(BeTrue())
	})

	It("should clone write requests without sharing data", func() {
		req := WriteReqBuilder{}.
			WithSrc("Agent.Mem").
			WithDst("IOPMP.Top").
			WithData([]byte{1, 2}).
			Build()

		clone := req.Clone().(*WriteReq)
		clone.Data[0] = 9

		Expect(clone.ID).ToNot(Equal(req.ID))
		Expect(req.Data[0]).To(Equal(byte(1)))
	})

	It("should carry error status on responses", func() {
		rsp := WriteDoneRspBuilder{}.
			WithSrc("IOPMP.Top").
			WithDst("Agent.Mem").
			WithRspTo("1").
			WithResp(RespSlvErr).
			Build()

		Expect(rsp.GetRspTo()).To(Equal("1"))
		Expect(rsp.GetResp()).To(Equal(RespSlvErr))
		Expect(rsp.GetResp().String()).To(Equal("SLVERR"))
	})
})
