//go:build ignore

// generate_hash.go — генерация Argon2id-хеша админского пароля.
// Запуск: go run scripts/generate_hash.go <пароль>
//
// Полученную строку положите в окружение как ADMIN_PASSWORD_HASH —
// именно её проверяет команда /admin.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/generate_hash.go <пароль>")
		os.Exit(1)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		fmt.Printf("Ошибка генерации соли: %v\n", err)
		os.Exit(1)
	}

	var (
		memory      uint32 = 65536
		iterations  uint32 = 3
		parallelism uint8  = 2
		keyLength   uint32 = 32
	)

	hash := argon2.IDKey([]byte(os.Args[1]), salt, iterations, memory, parallelism, keyLength)

	// Параметры кодируются в строку — проверка при логине читает их
	// оттуда же, менять значения выше можно свободно.
	encoded := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))

	fmt.Println("Вставьте в окружение как ADMIN_PASSWORD_HASH:")
	fmt.Println(encoded)
}
