package core

import (
	"strconv"
	"testing"
)

func populatedPresence(users, battles int) *Presence {
	p := NewPresence()
	for i := range users {
		p.AddUser(NewUser("u"+strconv.Itoa(i), "DE"))
	}
	for i := range battles {
		p.AddBattle(Battle{ID: BattleID(i), Founder: "u" + strconv.Itoa(i)})
	}
	return p
}

func benchmarkMembershipChurn(b *testing.B, users int) {
	p := populatedPresence(users, 10)
	name := "u" + strconv.Itoa(users-1)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id := BattleID(i % 10)
		if _, err := p.JoinBattle(id, name); err != nil {
			b.Fatal(err)
		}
		if _, err := p.BattleMembers(id); err != nil {
			b.Fatal(err)
		}
		if _, err := p.LeaveBattle(id, name); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMembershipChurn_100(b *testing.B)  { benchmarkMembershipChurn(b, 100) }
func BenchmarkMembershipChurn_1000(b *testing.B) { benchmarkMembershipChurn(b, 1000) }
func BenchmarkMembershipChurn_5000(b *testing.B) { benchmarkMembershipChurn(b, 5000) }

func BenchmarkListUsers_5000(b *testing.B) {
	p := populatedPresence(5000, 100)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if len(p.ListUsers()) != 5000 {
			b.Fatal("short list")
		}
	}
}
