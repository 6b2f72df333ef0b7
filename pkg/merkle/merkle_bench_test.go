package merkle

import (
	"fmt"
	"testing"
)

func BenchmarkBuildAllocationTree(b *testing.B) {
	for _, size := range []int{16, 256, 4096} {
		b.Run(fmt.Sprintf("%d_records", size), func(b *testing.B) {
			records := createTestAllocations(size)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := BuildAllocationTree(records)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkVerifyProof(b *testing.B) {
	records := createTestAllocations(4096)
	tree, err := BuildAllocationTree(records)
	if err != nil {
		b.Fatal(err)
	}
	proof, err := tree.GenerateProof(1234)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !VerifyProof(proof.Leaf, proof.Siblings, tree.Root) {
			b.Fatal("proof should verify")
		}
	}
}
