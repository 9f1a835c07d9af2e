package uploads

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize — максимальный размер загружаемого файла (8 МБ).
const MaxFileSize = 8 << 20

var ErrUnsupportedExtension = errors.New("недопустимый тип файла: разрешены pdf, doc, docx")

// allowedExts — список разрешённых расширений вложений.
var allowedExts = map[string]bool{
	"pdf":  true,
	"doc":  true,
	"docx": true,
}

// Dir возвращает каталог для загрузок (UPLOAD_DIR, по умолчанию "uploads").
func Dir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return dir
}

// Ext возвращает расширение имени файла в нижнем регистре без точки.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Allowed сообщает, разрешено ли расширение файла.
func Allowed(name string) bool {
	return allowedExts[Ext(name)]
}

// Store сохраняет файл под уникальным серверным именем и возвращает его.
// Проверка расширения выполняется до записи: при недопустимом типе на диске
// ничего не появляется.
func Store(src io.Reader, origName string) (string, error) {
	if !Allowed(origName) {
		return "", ErrUnsupportedExtension
	}

	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return "", err
	}

	storedName := uuid.NewString() + "." + Ext(origName)
	dst, err := os.Create(filepath.Join(Dir(), storedName))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return storedName, nil
}

// Path возвращает путь к сохранённому файлу.
func Path(storedName string) string {
	return filepath.Join(Dir(), storedName)
}

// Remove удаляет сохранённый файл; отсутствие файла не считается ошибкой.
func Remove(storedName string) error {
	err := os.Remove(Path(storedName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
