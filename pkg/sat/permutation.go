package sat

import (
	"fmt"
	"math/rand/v2"

	mapset "github.com/deckarep/golang-set/v2"
)

// Remapping is a bijection over the variables 1..n; Remapping[v-1] is the image of v.
type Remapping []int64

// NewRemapping shuffles 1..variables into a random bijection.
func NewRemapping(variables uint64, rng *rand.Rand) Remapping {
	remapping := make(Remapping, variables)
	for i := range remapping {
		remapping[i] = int64(i + 1)
	}
	rng.Shuffle(len(remapping), func(i, j int) {
		remapping[i], remapping[j] = remapping[j], remapping[i]
	})
	return remapping
}

func (remapping Remapping) Validate() error {
	images := mapset.NewThreadUnsafeSetWithSize[int64](len(remapping))
	for _, image := range remapping {
		if image < 1 || image > int64(len(remapping)) {
			return fmt.Errorf("%w: image %v outside 1..%v", ErrPermutation, image, len(remapping))
		}
		if !images.Add(image) {
			return fmt.Errorf("%w: image %v assigned twice", ErrPermutation, image)
		}
	}
	return nil
}

// Apply relabels the literal's variable and keeps its polarity, so Apply(-l) == -Apply(l).
func (remapping Remapping) Apply(literal int64) (int64, error) {
	variable := int64(magnitude(literal))
	if variable == 0 || variable > int64(len(remapping)) {
		return 0, fmt.Errorf("%w: literal %v outside variable range 1..%v", ErrPermutation, literal, len(remapping))
	}
	image := remapping[variable-1]
	if literal < 0 {
		return -image, nil
	}
	return image, nil
}

// Permute relabels the instance's variables under a random bijection seeded by seed, and shuffles clause order and
// literal order within each clause. The result is satisfiable iff the input is. A zero seed returns an unchanged copy.
func Permute(instance Instance, seed int64) (Instance, error) {
	if seed == 0 {
		return instance.Clone(), nil
	}
	return PermuteWith(instance, NewRand(seed))
}

func PermuteWith(instance Instance, rng *rand.Rand) (Instance, error) {
	remapping := NewRemapping(instance.VariableCount(), rng)
	if err := remapping.Validate(); err != nil {
		return Instance{}, err
	}

	permuted := instance.Clone()
	rng.Shuffle(len(permuted.Clauses), func(i, j int) {
		permuted.Clauses[i], permuted.Clauses[j] = permuted.Clauses[j], permuted.Clauses[i]
	})

	for _, clause := range permuted.Clauses {
		rng.Shuffle(len(clause), func(i, j int) {
			clause[i], clause[j] = clause[j], clause[i]
		})
		for i, literal := range clause {
			image, err := remapping.Apply(literal)
			if err != nil {
				return Instance{}, err
			}
			clause[i] = image
		}
	}

	return permuted, nil
}
