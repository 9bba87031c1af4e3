package segment

import (
	"cmp"
	"slices"
)

// Bucket maps a 1-based rank among n items onto k equal-count bins,
// returning a bin number in [1, k]. Ranks are assigned "first" style by
// the caller, so ties never share a rank.
func Bucket(rank, n, k int) int {
	if n <= 0 || k <= 0 {
		return 0
	}
	return (rank-1)*k/n + 1
}

// score fills R/F/M quartiles and the monetary decile for buyers.
// Higher is better on every axis: recent, frequent, high-spending
// customers score 4. Ties fall back to customer ID order, which the
// profiles already have.
func score(profiles []Profile) {
	var buyers []*Profile
	for i := range profiles {
		if profiles[i].Frequency > 0 {
			buyers = append(buyers, &profiles[i])
		}
	}
	n := len(buyers)
	if n == 0 {
		return
	}

	rank := func(less func(a, b *Profile) int, set func(p *Profile, rank int)) {
		ordered := slices.Clone(buyers)
		slices.SortStableFunc(ordered, less)
		for i, p := range ordered {
			set(p, i+1)
		}
	}

	// Older purchases rank first so the most recent land in the top bin.
	rank(func(a, b *Profile) int {
		return cmp.Compare(*b.RecencyDays, *a.RecencyDays)
	}, func(p *Profile, r int) { p.RScore = Bucket(r, n, 4) })

	rank(func(a, b *Profile) int {
		return cmp.Compare(a.Frequency, b.Frequency)
	}, func(p *Profile, r int) { p.FScore = Bucket(r, n, 4) })

	rank(func(a, b *Profile) int {
		return a.Monetary.Cmp(b.Monetary)
	}, func(p *Profile, r int) {
		p.MScore = Bucket(r, n, 4)
		p.MonetaryDecile = Bucket(r, n, 10)
	})
}
