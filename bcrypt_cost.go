//go:build !race

package drive

func passwordHashCost() int {
	return 14
}
