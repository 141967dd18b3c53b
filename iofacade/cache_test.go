/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package iofacade_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/decomp/iofacade"
)

func TestIofacade(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Iofacade Suite")
}

var _ = Describe("Cache", func() {
	var cache *iofacade.Cache

	BeforeEach(func() {
		var err error
		cache, err = iofacade.OpenCache(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(cache.Close()).To(Succeed())
	})

	It("reports a miss for an object it has never seen", func() {
		_, _, ok := cache.Get("dataset.bin", "numIOTasks=2,ioStride=2")
		Expect(ok).To(BeFalse())
	})

	It("round-trips a stored partition", func() {
		Expect(cache.Put("dataset.bin", "numIOTasks=2,ioStride=2", 8, 8)).To(Succeed())

		ioStart, ioCount, ok := cache.Get("dataset.bin", "numIOTasks=2,ioStride=2")
		Expect(ok).To(BeTrue())
		Expect(ioStart).To(BeEquivalentTo(8))
		Expect(ioCount).To(BeEquivalentTo(8))
	})

	It("keeps entries for distinct policies on the same object separate", func() {
		Expect(cache.Put("dataset.bin", "numIOTasks=1,ioStride=1", 0, 16)).To(Succeed())
		Expect(cache.Put("dataset.bin", "numIOTasks=2,ioStride=2", 0, 8)).To(Succeed())

		ioStart, ioCount, ok := cache.Get("dataset.bin", "numIOTasks=1,ioStride=1")
		Expect(ok).To(BeTrue())
		Expect(ioStart).To(BeEquivalentTo(0))
		Expect(ioCount).To(BeEquivalentTo(16))

		ioStart, ioCount, ok = cache.Get("dataset.bin", "numIOTasks=2,ioStride=2")
		Expect(ok).To(BeTrue())
		Expect(ioStart).To(BeEquivalentTo(0))
		Expect(ioCount).To(BeEquivalentTo(8))
	})

	It("keeps entries for distinct objects under the same policy separate", func() {
		Expect(cache.Put("a.bin", "numIOTasks=2,ioStride=1", 0, 4)).To(Succeed())
		Expect(cache.Put("b.bin", "numIOTasks=2,ioStride=1", 4, 4)).To(Succeed())

		ioStart, _, ok := cache.Get("a.bin", "numIOTasks=2,ioStride=1")
		Expect(ok).To(BeTrue())
		Expect(ioStart).To(BeEquivalentTo(0))

		ioStart, _, ok = cache.Get("b.bin", "numIOTasks=2,ioStride=1")
		Expect(ok).To(BeTrue())
		Expect(ioStart).To(BeEquivalentTo(4))
	})
})
