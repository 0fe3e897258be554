package quiz

import "math/rand/v2"

// Sample 打乱题库并截取前 k 道题，作为一次作答的出题顺序。
// 题库为空时返回 ErrEmptyPool；k 大于题库时返回整个题库。入参切片不会被修改。
func Sample[T any](pool []T, k int) ([]T, error) {
	return sample(pool, k, rand.Shuffle)
}

// SampleWith 与 Sample 相同，但使用调用方提供的随机源
func SampleWith[T any](r *rand.Rand, pool []T, k int) ([]T, error) {
	return sample(pool, k, r.Shuffle)
}

func sample[T any](pool []T, k int, shuffle func(n int, swap func(i, j int))) ([]T, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	if k < 0 {
		return nil, ErrInvalidSampleSize
	}

	out := make([]T, len(pool))
	copy(out, pool)
	shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}
