package template

import (
	"fmt"
	"strings"
)

// Fake data is drawn from fixed word lists with the context's random
// source, so a seeded render always produces the same values. It is
// plausible test data, not anonymization-grade randomness.

var (
	fakeFirstNames = []string{
		"Alice", "Bob", "Carol", "David", "Emma", "Frank", "Grace",
		"Henry", "Iris", "Jack", "Karen", "Liam", "Mia", "Noah",
		"Olivia", "Peter", "Quinn", "Rosa", "Sam", "Tara",
	}
	fakeLastNames = []string{
		"Anderson", "Brown", "Chen", "Davis", "Evans", "Fischer",
		"Garcia", "Hansen", "Ivanov", "Johnson", "Kim", "Lopez",
		"Miller", "Nguyen", "Olsen", "Patel", "Quinn", "Rossi",
		"Smith", "Tanaka",
	}
	fakeEmailDomains = []string{
		"example.com", "example.org", "example.net", "test.io", "mail.test",
	}
	fakeCompanySuffixes = []string{
		"Labs", "Systems", "Industries", "Group", "Works", "Partners",
	}
	fakeStreets = []string{
		"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Park Rd",
		"Lake View", "Hill Ct", "River Way",
	}
	fakeCities = []string{
		"Springfield", "Riverton", "Lakeside", "Fairview", "Greenfield",
		"Milltown", "Ashford", "Brookhaven",
	}
	fakeLoremWords = []string{
		"lorem", "ipsum", "dolor", "sit", "amet", "consectetur",
		"adipiscing", "elit", "sed", "do", "eiusmod", "tempor",
		"incididunt", "ut", "labore", "et", "dolore", "magna", "aliqua",
	}
)

func pick(ctx *Context, list []string) string {
	return list[ctx.intN(len(list))]
}

func helperFake(expr, category string, ctx *Context) (string, error) {
	switch category {
	case "name":
		return pick(ctx, fakeFirstNames) + " " + pick(ctx, fakeLastNames), nil
	case "first_name":
		return pick(ctx, fakeFirstNames), nil
	case "last_name":
		return pick(ctx, fakeLastNames), nil
	case "email":
		first := strings.ToLower(pick(ctx, fakeFirstNames))
		last := strings.ToLower(pick(ctx, fakeLastNames))
		return fmt.Sprintf("%s.%s@%s", first, last, pick(ctx, fakeEmailDomains)), nil
	case "phone":
		return fmt.Sprintf("+1-%03d-%03d-%04d",
			200+ctx.intN(800), ctx.intN(1000), ctx.intN(10000)), nil
	case "address":
		return fmt.Sprintf("%d %s, %s",
			1+ctx.intN(9999), pick(ctx, fakeStreets), pick(ctx, fakeCities)), nil
	case "company":
		return pick(ctx, fakeLastNames) + " " + pick(ctx, fakeCompanySuffixes), nil
	case "lorem":
		words := make([]string, 8)
		for i := range words {
			words[i] = pick(ctx, fakeLoremWords)
		}
		return strings.Join(words, " "), nil
	}
	return "", unknownHelper(expr)
}
